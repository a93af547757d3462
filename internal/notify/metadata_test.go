package notify

import (
	"encoding/json"
	"testing"
)

func TestReminderMetadataWireShape(t *testing.T) {
	data, err := json.Marshal(ReminderMetadata("7"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"type":"recordatorio","recordatorioId":"7"}`
	if string(data) != want {
		t.Errorf("wire = %s, want %s", data, want)
	}
}

func TestTestMetadataOmitsReminderID(t *testing.T) {
	data, err := json.Marshal(TestMetadata())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"type":"test"}`
	if string(data) != want {
		t.Errorf("wire = %s, want %s", data, want)
	}
}
