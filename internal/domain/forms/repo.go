package forms

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a clinic form does not exist.
var ErrNotFound = errors.New("clinic form not found")

// Repository is the persistence contract for clinic form templates.
type Repository interface {
	Create(ctx context.Context, f *ClinicForm) error
	GetByID(ctx context.Context, id uuid.UUID) (*ClinicForm, error)
	// ActiveByType returns the active template with the highest version for
	// a form type.
	ActiveByType(ctx context.Context, formType string) (*ClinicForm, error)
	Update(ctx context.Context, f *ClinicForm) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, service string, limit, offset int) ([]*ClinicForm, int, error)
}
