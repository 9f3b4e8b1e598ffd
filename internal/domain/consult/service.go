package consult

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/PaulAlexX98/safescript-admin-sub001/internal/domain/orders"
)

// Service covers session lifecycle around the save and completion pipelines.
type Service struct {
	sessions  SessionRepository
	responses ResponseRepository
	orders    OrderFlow
}

func NewService(sessions SessionRepository, responses ResponseRepository, flow OrderFlow) *Service {
	return &Service{sessions: sessions, responses: responses, orders: flow}
}

// Start opens a session against an order, inheriting its service and patient.
func (s *Service) Start(ctx context.Context, orderID uuid.UUID, actor string) (*Session, error) {
	var order *orders.Order
	if orderID != uuid.Nil && s.orders != nil {
		var err error
		order, err = s.orders.GetOrder(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("load order: %w", err)
		}
	}

	session := &Session{
		OrderID: orderID,
		Status:  SessionInProgress,
		Meta:    map[string]any{},
	}
	if order != nil {
		session.UserID = order.UserID
		session.Service = order.Service
	}
	session.MetaSet("started_by", actor)

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.sessions.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]*Session, int, error) {
	return s.sessions.List(ctx, status, limit, offset)
}

func (s *Service) Responses(ctx context.Context, sessionID uuid.UUID) ([]*FormResponse, error) {
	return s.responses.ListBySession(ctx, sessionID)
}
