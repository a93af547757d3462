package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vetcontrol/companion/internal/logging"
	"github.com/vetcontrol/companion/internal/model"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:  srv.URL,
		Email:    "owner@example.com",
		Password: "secret",
		Timeout:  5 * time.Second,
	}, logging.Setup("error"))
}

// loginOK answers /auth/login with a static token and delegates the rest.
func loginOK(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login" {
			var creds map[string]string
			json.NewDecoder(r.Body).Decode(&creds)
			if creds["email"] != "owner@example.com" || creds["password"] != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"token": "test-token"})
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r)
	})
}

func TestListRemindersMapsWireFields(t *testing.T) {
	client := newTestClient(t, loginOK(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recordatorios" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`[{
			"id_recordatorio": 12,
			"tipo": "vacuna",
			"titulo": "Rabia",
			"descripcion": "Refuerzo anual",
			"fecha_programada": "2024-06-15",
			"completado": false,
			"id_mascota": 3,
			"fecha_creacion": "2024-05-01T09:00:00Z"
		}]`))
	}))

	reminders, err := client.ListReminders(context.Background())
	if err != nil {
		t.Fatalf("list reminders: %v", err)
	}
	if len(reminders) != 1 {
		t.Fatalf("len = %d, want 1", len(reminders))
	}

	r := reminders[0]
	if r.ID != "12" {
		t.Errorf("id = %q, want 12", r.ID)
	}
	if r.Kind != model.ReminderKindVaccine {
		t.Errorf("kind = %q, want vaccine", r.Kind)
	}
	if r.Title != "Rabia" || r.DueDate != "2024-06-15" || r.PetID != "3" {
		t.Errorf("unexpected reminder %+v", r)
	}
	if r.CreatedAt.IsZero() {
		t.Error("created_at not parsed")
	}
}

func TestCreateReminderSendsWireBody(t *testing.T) {
	client := newTestClient(t, loginOK(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["tipo"] != "desparasitacion" {
			t.Errorf("tipo = %v, want desparasitacion", body["tipo"])
		}
		if body["titulo"] != "Pipeta" {
			t.Errorf("titulo = %v, want Pipeta", body["titulo"])
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id_recordatorio": 99, "tipo": "desparasitacion", "titulo": "Pipeta", "fecha_programada": "2024-07-01"}`))
	}))

	created, err := client.CreateReminder(context.Background(), model.Reminder{
		Kind:    model.ReminderKindDeworming,
		Title:   "Pipeta",
		DueDate: "2024-07-01",
	})
	if err != nil {
		t.Fatalf("create reminder: %v", err)
	}
	if created.ID != "99" {
		t.Errorf("id = %q, want 99", created.ID)
	}
	if created.Kind != model.ReminderKindDeworming {
		t.Errorf("kind = %q, want deworming", created.Kind)
	}
}

func TestUnauthorizedReturnsSessionExpired(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login" {
			json.NewEncoder(w).Encode(map[string]string{"token": "stale"})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.ListReminders(context.Background())
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("error = %v, want ErrSessionExpired", err)
	}
}

func TestGetRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, loginOK(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[]`))
	}))

	if _, err := client.ListPets(context.Background()); err != nil {
		t.Fatalf("list pets after retries: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestClientErrorIsAPIError(t *testing.T) {
	client := newTestClient(t, loginOK(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "recordatorio no encontrado"})
	}))

	err := client.DeleteReminder(context.Background(), "77")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", apiErr.StatusCode)
	}
	if apiErr.Message != "recordatorio no encontrado" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestMutationsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, loginOK(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	if err := client.DeleteReminder(context.Background(), "1"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}
