package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/vetcontrol/companion/internal/model"
)

type wirePet struct {
	ID           json.Number `json:"id_mascota"`
	Nombre       string      `json:"nombre"`
	Especie      string      `json:"especie"`
	Raza         string      `json:"raza"`
	Sexo         string      `json:"sexo"`
	Nacimiento   string      `json:"fecha_nacimiento"`
	Color        string      `json:"color"`
	Peso         float64     `json:"peso"`
	Tamano       string      `json:"tamano"`
	Microchip    string      `json:"num_microchip"`
	Esterilizado bool        `json:"esterilizado"`
}

func (w wirePet) toModel() model.Pet {
	return model.Pet{
		ID:           w.ID.String(),
		Name:         w.Nombre,
		Species:      w.Especie,
		Breed:        w.Raza,
		Sex:          w.Sexo,
		BirthDate:    w.Nacimiento,
		Color:        w.Color,
		WeightKg:     w.Peso,
		Size:         w.Tamano,
		MicrochipNum: w.Microchip,
		Neutered:     w.Esterilizado,
		CachedAt:     time.Now().UTC(),
	}
}

// ListPets fetches the owner's pets.
func (c *Client) ListPets(ctx context.Context) ([]model.Pet, error) {
	var wires []wirePet
	if err := c.do(ctx, http.MethodGet, "/mascotas", nil, &wires); err != nil {
		return nil, err
	}
	pets := make([]model.Pet, 0, len(wires))
	for _, w := range wires {
		pets = append(pets, w.toModel())
	}
	return pets, nil
}

var appointmentStatusFromWire = map[string]string{
	"programada": model.AppointmentScheduled,
	"completada": model.AppointmentCompleted,
	"cancelada":  model.AppointmentCancelled,
	"pendiente":  model.AppointmentPending,
}

type wireAppointment struct {
	ID        json.Number `json:"id_cita"`
	FechaHora string      `json:"fecha_hora"`
	Motivo    string      `json:"motivo"`
	Estado    string      `json:"estado"`
	MascotaID json.Number `json:"id_mascota"`
}

func (w wireAppointment) toModel() model.Appointment {
	status := appointmentStatusFromWire[w.Estado]
	if status == "" {
		status = w.Estado
	}
	return model.Appointment{
		ID:       w.ID.String(),
		DateTime: w.FechaHora,
		Reason:   w.Motivo,
		Status:   status,
		PetID:    w.MascotaID.String(),
		CachedAt: time.Now().UTC(),
	}
}

// ListAppointments fetches the owner's clinic appointments.
func (c *Client) ListAppointments(ctx context.Context) ([]model.Appointment, error) {
	var wires []wireAppointment
	if err := c.do(ctx, http.MethodGet, "/citas", nil, &wires); err != nil {
		return nil, err
	}
	appts := make([]model.Appointment, 0, len(wires))
	for _, w := range wires {
		appts = append(appts, w.toModel())
	}
	return appts, nil
}

var invoiceStatusFromWire = map[string]string{
	"pagada":    model.InvoicePaid,
	"pendiente": model.InvoicePending,
	"anulada":   model.InvoiceVoided,
	"vencida":   model.InvoiceOverdue,
}

type wireInvoice struct {
	ID          json.Number `json:"id_factura"`
	Descripcion string      `json:"descripcion"`
	Total       float64     `json:"total"`
	Moneda      string      `json:"moneda"`
	Emision     string      `json:"fecha_emision"`
	Vencimiento string      `json:"fecha_vencimiento"`
	Pago        string      `json:"fecha_pago"`
	Estado      string      `json:"estado"`
	MetodoPago  string      `json:"metodo_pago"`
	MascotaID   json.Number `json:"id_mascota"`
}

func (w wireInvoice) toModel() model.Invoice {
	status := invoiceStatusFromWire[w.Estado]
	if status == "" {
		status = w.Estado
	}
	currency := w.Moneda
	if currency == "" {
		currency = "eur"
	}
	return model.Invoice{
		ID:          w.ID.String(),
		Description: w.Descripcion,
		// Backend sends decimal currency amounts; locally we keep cents.
		TotalCents:    int64(math.Round(w.Total * 100)),
		Currency:      currency,
		IssuedDate:    w.Emision,
		DueDate:       w.Vencimiento,
		PaidDate:      w.Pago,
		Status:        status,
		PaymentMethod: w.MetodoPago,
		PetID:         w.MascotaID.String(),
		CachedAt:      time.Now().UTC(),
	}
}

// ListInvoices fetches the owner's invoices.
func (c *Client) ListInvoices(ctx context.Context) ([]model.Invoice, error) {
	var wires []wireInvoice
	if err := c.do(ctx, http.MethodGet, "/facturas", nil, &wires); err != nil {
		return nil, err
	}
	invoices := make([]model.Invoice, 0, len(wires))
	for _, w := range wires {
		invoices = append(invoices, w.toModel())
	}
	return invoices, nil
}

// MarkInvoicePaid reports a completed payment to the backend.
func (c *Client) MarkInvoicePaid(ctx context.Context, id, method string) (*model.Invoice, error) {
	body := map[string]any{"metodo_pago": method}
	var w wireInvoice
	if err := c.do(ctx, http.MethodPut, "/facturas/"+url.PathEscape(id)+"/pagar", body, &w); err != nil {
		return nil, err
	}
	paid := w.toModel()
	return &paid, nil
}
