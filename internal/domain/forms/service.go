package forms

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service manages the clinic form registry.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateForm(ctx context.Context, f *ClinicForm) error {
	if f.Name == "" {
		return fmt.Errorf("name is required")
	}
	if f.FormType == "" {
		return fmt.Errorf("form_type is required")
	}
	if err := validateSchema(f.Schema); err != nil {
		return err
	}
	if f.Version == 0 {
		f.Version = 1
	}
	return s.repo.Create(ctx, f)
}

func (s *Service) GetForm(ctx context.Context, id uuid.UUID) (*ClinicForm, error) {
	return s.repo.GetByID(ctx, id)
}

// ActiveForm resolves the schema used when saving answers of the given type.
func (s *Service) ActiveForm(ctx context.Context, formType string) (*ClinicForm, error) {
	return s.repo.ActiveByType(ctx, formType)
}

func (s *Service) UpdateForm(ctx context.Context, f *ClinicForm) error {
	if f.Name == "" {
		return fmt.Errorf("name is required")
	}
	if err := validateSchema(f.Schema); err != nil {
		return err
	}
	return s.repo.Update(ctx, f)
}

func (s *Service) DeleteForm(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) ListForms(ctx context.Context, service string, limit, offset int) ([]*ClinicForm, int, error) {
	return s.repo.List(ctx, service, limit, offset)
}

// validateSchema rejects descriptors that could never store or validate a
// value. Static blocks are exempt since they hold no answer.
func validateSchema(schema FormSchema) error {
	for i, d := range schema {
		if d.Kind == "" {
			return fmt.Errorf("schema field %d: type is required", i)
		}
		if d.Kind == KindStatic {
			continue
		}
		if d.Key == "" && d.Name == "" && d.Label == "" {
			return fmt.Errorf("schema field %d: needs a key, name, or label", i)
		}
		switch d.Kind {
		case KindSelect, KindMultiSelect:
			if len(d.Options) == 0 {
				return fmt.Errorf("schema field %d (%s): options are required", i, d.StorageKey(i))
			}
		}
	}
	return nil
}
