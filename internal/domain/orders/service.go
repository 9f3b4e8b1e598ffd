package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	orders OrderRepository
	appts  AppointmentRepository
}

func NewService(orders OrderRepository, appts AppointmentRepository) *Service {
	return &Service{orders: orders, appts: appts}
}

func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

func (s *Service) GetOrderByReference(ctx context.Context, ref string) (*Order, error) {
	return s.orders.GetByReference(ctx, ref)
}

func (s *Service) ListOrders(ctx context.Context, status string, limit, offset int) ([]*Order, int, error) {
	return s.orders.List(ctx, status, limit, offset)
}

func (s *Service) CreateOrder(ctx context.Context, o *Order) error {
	if o.Reference == "" {
		return fmt.Errorf("reference is required")
	}
	return s.orders.Create(ctx, o)
}

// AddNote appends a deduplicated note to the order and persists it. Returns
// false when the note was already present and nothing was written.
func (s *Service) AddNote(ctx context.Context, id uuid.UUID, note string) (bool, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if !o.AppendNote(note) {
		return false, nil
	}
	return true, s.orders.Update(ctx, o)
}

// ApproveOrder flips the order to approved, enforcing the status guard.
func (s *Service) ApproveOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := o.Approve(); err != nil {
		return nil, err
	}
	return o, s.orders.Update(ctx, o)
}

// CompleteOrder advances the order to completed when it is in an advanceable
// state. Terminal orders are returned unchanged without writing.
func (s *Service) CompleteOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.Complete() {
		return o, nil
	}
	return o, s.orders.Update(ctx, o)
}

// SetOrderMeta writes the given dotted-path entries into the order's meta and
// persists it.
func (s *Service) SetOrderMeta(ctx context.Context, id uuid.UUID, entries map[string]any) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	for path, value := range entries {
		o.SetMeta(path, value)
	}
	return o, s.orders.Update(ctx, o)
}

func (s *Service) AppointmentForOrder(ctx context.Context, orderID uuid.UUID) (*Appointment, error) {
	return s.appts.GetByOrderID(ctx, orderID)
}

// CompleteAppointment marks the order's appointment done when one exists and
// is still in an advanceable state; otherwise the appointment is returned as
// is.
func (s *Service) CompleteAppointment(ctx context.Context, orderID uuid.UUID) (*Appointment, error) {
	a, err := s.appts.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !a.Complete() {
		return a, nil
	}
	return a, s.appts.Update(ctx, a)
}
