package consult

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrResponseNotFound = errors.New("form response not found")
)

type SessionRepository interface {
	Create(ctx context.Context, s *Session) error
	GetByID(ctx context.Context, id uuid.UUID) (*Session, error)
	// GetForUpdate locks the session row for the duration of the enclosing
	// transaction.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Session, error)
	Update(ctx context.Context, s *Session) error
	List(ctx context.Context, status string, limit, offset int) ([]*Session, int, error)
}

type ResponseRepository interface {
	// GetForUpdate returns the session's response for a form type with the
	// row locked, or ErrResponseNotFound when none exists yet.
	GetForUpdate(ctx context.Context, sessionID uuid.UUID, formType string) (*FormResponse, error)
	Get(ctx context.Context, sessionID uuid.UUID, formType string) (*FormResponse, error)
	Create(ctx context.Context, r *FormResponse) error
	Update(ctx context.Context, r *FormResponse) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*FormResponse, error)
}
