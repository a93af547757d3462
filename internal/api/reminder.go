package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/vetcontrol/companion/internal/model"
)

// Reminder kinds as the backend spells them.
var kindFromWire = map[string]string{
	"vacuna":          model.ReminderKindVaccine,
	"medicamento":     model.ReminderKindMedication,
	"desparasitacion": model.ReminderKindDeworming,
}

var kindToWire = map[string]string{
	model.ReminderKindVaccine:    "vacuna",
	model.ReminderKindMedication: "medicamento",
	model.ReminderKindDeworming:  "desparasitacion",
}

type wireReminder struct {
	ID          json.Number `json:"id_recordatorio"`
	Tipo        string      `json:"tipo"`
	Titulo      string      `json:"titulo"`
	Descripcion string      `json:"descripcion"`
	Fecha       string      `json:"fecha_programada"`
	Completado  bool        `json:"completado"`
	MascotaID   json.Number `json:"id_mascota"`
	Creado      string      `json:"fecha_creacion"`
	Actualizado string      `json:"fecha_actualizacion"`
}

func (w wireReminder) toModel() model.Reminder {
	kind := kindFromWire[w.Tipo]
	if kind == "" {
		kind = w.Tipo
	}
	return model.Reminder{
		ID:          w.ID.String(),
		Kind:        kind,
		Title:       w.Titulo,
		Description: w.Descripcion,
		DueDate:     w.Fecha,
		Completed:   w.Completado,
		PetID:       w.MascotaID.String(),
		CreatedAt:   parseWireTime(w.Creado),
		UpdatedAt:   parseWireTime(w.Actualizado),
	}
}

// parseWireTime is lenient: backend timestamps come as RFC 3339 or as bare
// datetimes, and a missing one just yields the zero time.
func parseWireTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ReminderPatch carries partial updates; nil fields are left untouched.
type ReminderPatch struct {
	Kind        *string
	Title       *string
	Description *string
	DueDate     *string
	Completed   *bool
}

func (p ReminderPatch) wire() map[string]any {
	body := make(map[string]any)
	if p.Kind != nil {
		tipo := kindToWire[*p.Kind]
		if tipo == "" {
			tipo = *p.Kind
		}
		body["tipo"] = tipo
	}
	if p.Title != nil {
		body["titulo"] = *p.Title
	}
	if p.Description != nil {
		body["descripcion"] = *p.Description
	}
	if p.DueDate != nil {
		body["fecha_programada"] = *p.DueDate
	}
	if p.Completed != nil {
		body["completado"] = *p.Completed
	}
	return body
}

// ListReminders fetches every reminder for the authenticated owner.
func (c *Client) ListReminders(ctx context.Context) ([]model.Reminder, error) {
	var wires []wireReminder
	if err := c.do(ctx, http.MethodGet, "/recordatorios", nil, &wires); err != nil {
		return nil, err
	}
	reminders := make([]model.Reminder, 0, len(wires))
	for _, w := range wires {
		reminders = append(reminders, w.toModel())
	}
	return reminders, nil
}

// CreateReminder creates a reminder on the backend and returns the record
// the backend assigned, ID included.
func (c *Client) CreateReminder(ctx context.Context, r model.Reminder) (*model.Reminder, error) {
	tipo := kindToWire[r.Kind]
	if tipo == "" {
		tipo = r.Kind
	}
	body := map[string]any{
		"tipo":             tipo,
		"titulo":           r.Title,
		"descripcion":      r.Description,
		"fecha_programada": r.DueDate,
		"id_mascota":       r.PetID,
	}
	var w wireReminder
	if err := c.do(ctx, http.MethodPost, "/recordatorios", body, &w); err != nil {
		return nil, err
	}
	created := w.toModel()
	return &created, nil
}

// UpdateReminder applies a partial update and returns the backend's updated
// record.
func (c *Client) UpdateReminder(ctx context.Context, id string, patch ReminderPatch) (*model.Reminder, error) {
	var w wireReminder
	if err := c.do(ctx, http.MethodPut, "/recordatorios/"+url.PathEscape(id), patch.wire(), &w); err != nil {
		return nil, err
	}
	updated := w.toModel()
	return &updated, nil
}

func (c *Client) DeleteReminder(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/recordatorios/"+url.PathEscape(id), nil, nil)
}
