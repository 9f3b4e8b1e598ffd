// Package orders holds the commercial side of a consultation: the order row a
// session was opened against, and the appointment booked for it.
package orders

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Order statuses. Consultation completion moves an order to StatusCompleted;
// only pending, processing, and approved orders may advance there.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusApproved   = "approved"
	StatusCompleted  = "completed"
	StatusShipped    = "shipped"
	StatusCancelled  = "cancelled"
)

// Appointment statuses.
const (
	ApptBooked    = "booked"
	ApptApproved  = "approved"
	ApptPending   = "pending"
	ApptCompleted = "completed"
)

// ShippingAddress is the destination captured on the order itself. Orders may
// carry none, in which case completion falls back to session answers and then
// to the patient account.
type ShippingAddress struct {
	Name     string `json:"name,omitempty"`
	Line1    string `json:"line1,omitempty"`
	Line2    string `json:"line2,omitempty"`
	City     string `json:"city,omitempty"`
	Postcode string `json:"postcode,omitempty"`
	Country  string `json:"country,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// Usable reports whether the address could be handed to a carrier.
func (a ShippingAddress) Usable() bool {
	return a.Line1 != "" && a.Postcode != ""
}

// Order is one purchase awaiting clinical sign-off.
type Order struct {
	ID        uuid.UUID       `json:"id"`
	Reference string          `json:"reference"`
	UserID    uuid.UUID       `json:"user_id"`
	Service   string          `json:"service"`
	Status    string          `json:"status"`
	Total     float64         `json:"total"`
	Shipping  ShippingAddress `json:"shipping"`
	Notes     []string        `json:"notes"`
	Meta      map[string]any  `json:"meta"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AppendNote adds a note unless an identical one is already present.
func (o *Order) AppendNote(note string) bool {
	if note == "" {
		return false
	}
	for _, n := range o.Notes {
		if n == note {
			return false
		}
	}
	o.Notes = append(o.Notes, note)
	return true
}

// Approve advances the order to approved. Approving an approved order is a
// no-op, not an error; terminal statuses refuse.
func (o *Order) Approve() error {
	switch o.Status {
	case StatusPending, StatusProcessing, StatusApproved:
		o.Status = StatusApproved
		return nil
	default:
		return fmt.Errorf("order %s cannot be approved from status %q", o.Reference, o.Status)
	}
}

// Complete advances the order to completed and reports whether anything
// changed. Orders in a terminal status (completed, shipped, cancelled) are
// left untouched rather than refused: consultation completion must not abort
// over an order that already moved on.
func (o *Order) Complete() bool {
	switch o.Status {
	case StatusPending, StatusProcessing, StatusApproved:
		o.Status = StatusCompleted
		return true
	default:
		return false
	}
}

// SetMeta writes a dotted path into the order meta, creating intermediate
// maps as needed.
func (o *Order) SetMeta(path string, value any) {
	if o.Meta == nil {
		o.Meta = map[string]any{}
	}
	parts := strings.Split(path, ".")
	m := o.Meta
	for _, part := range parts[:len(parts)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = map[string]any{}
			m[part] = next
		}
		m = next
	}
	m[parts[len(parts)-1]] = value
}

// Appointment is the consult booking tied to an order.
type Appointment struct {
	ID        uuid.UUID      `json:"id"`
	OrderID   uuid.UUID      `json:"order_id"`
	UserID    uuid.UUID      `json:"user_id"`
	Status    string         `json:"status"`
	StartsAt  *time.Time     `json:"starts_at,omitempty"`
	Meta      map[string]any `json:"meta"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Complete marks the appointment done and reports whether anything changed.
// An empty status counts as completable since legacy rows predate status
// tracking; anything else (cancelled, unknown) is left untouched.
func (a *Appointment) Complete() bool {
	switch a.Status {
	case ApptBooked, ApptApproved, ApptPending, "":
		a.Status = ApptCompleted
		return true
	default:
		return false
	}
}
