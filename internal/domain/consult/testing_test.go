package consult

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/PaulAlexX98/safescript-admin-sub001/internal/domain/forms"
	"github.com/PaulAlexX98/safescript-admin-sub001/internal/domain/orders"
)

// In-memory doubles shared by the store and completion tests.

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: map[uuid.UUID]*Session{}}
}

func (m *memSessionRepo) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.New()
	if s.Status == "" {
		s.Status = SessionInProgress
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *memSessionRepo) GetByID(_ context.Context, id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessionRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*Session, error) {
	return m.GetByID(ctx, id)
}

func (m *memSessionRepo) Update(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		return ErrSessionNotFound
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *memSessionRepo) List(_ context.Context, status string, limit, offset int) ([]*Session, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*Session
	for _, s := range m.sessions {
		if status == "" || s.Status == status {
			items = append(items, s)
		}
	}
	return items, len(items), nil
}

type memResponseRepo struct {
	mu        sync.Mutex
	responses map[string]*FormResponse
}

func newMemResponseRepo() *memResponseRepo {
	return &memResponseRepo{responses: map[string]*FormResponse{}}
}

func respKey(sessionID uuid.UUID, formType string) string {
	return sessionID.String() + "/" + formType
}

func (m *memResponseRepo) Get(_ context.Context, sessionID uuid.UUID, formType string) (*FormResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.responses[respKey(sessionID, formType)]
	if !ok {
		return nil, ErrResponseNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memResponseRepo) GetForUpdate(ctx context.Context, sessionID uuid.UUID, formType string) (*FormResponse, error) {
	return m.Get(ctx, sessionID, formType)
}

func (m *memResponseRepo) Create(_ context.Context, r *FormResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := respKey(r.SessionID, r.FormType)
	if _, exists := m.responses[key]; exists {
		return fmt.Errorf("duplicate response for %s", key)
	}
	r.ID = uuid.New()
	m.responses[key] = r
	return nil
}

func (m *memResponseRepo) Update(_ context.Context, r *FormResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := respKey(r.SessionID, r.FormType)
	if _, ok := m.responses[key]; !ok {
		return ErrResponseNotFound
	}
	m.responses[key] = r
	return nil
}

func (m *memResponseRepo) ListBySession(_ context.Context, sessionID uuid.UUID) ([]*FormResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []*FormResponse
	for _, r := range m.responses {
		if r.SessionID == sessionID {
			items = append(items, r)
		}
	}
	return items, nil
}

type stubSchemas struct {
	form *forms.ClinicForm
}

func (s *stubSchemas) ActiveForm(_ context.Context, formType string) (*forms.ClinicForm, error) {
	if s.form == nil || s.form.FormType != formType {
		return nil, forms.ErrNotFound
	}
	return s.form, nil
}

type stubFlow struct {
	mu     sync.Mutex
	order  *orders.Order
	appt   *orders.Appointment
	notes  []string
	failed bool
}

func (f *stubFlow) GetOrder(_ context.Context, id uuid.UUID) (*orders.Order, error) {
	if f.order == nil || f.order.ID != id {
		return nil, orders.ErrOrderNotFound
	}
	return f.order, nil
}

func (f *stubFlow) CompleteOrder(_ context.Context, id uuid.UUID) (*orders.Order, error) {
	if f.order == nil || f.order.ID != id {
		return nil, orders.ErrOrderNotFound
	}
	f.order.Complete()
	return f.order, nil
}

func (f *stubFlow) CompleteAppointment(_ context.Context, orderID uuid.UUID) (*orders.Appointment, error) {
	if f.appt == nil || f.appt.OrderID != orderID {
		return nil, orders.ErrAppointmentNotFound
	}
	f.appt.Complete()
	return f.appt, nil
}

func (f *stubFlow) SetOrderMeta(_ context.Context, id uuid.UUID, entries map[string]any) (*orders.Order, error) {
	if f.order == nil || f.order.ID != id {
		return nil, orders.ErrOrderNotFound
	}
	for path, value := range entries {
		f.order.SetMeta(path, value)
	}
	return f.order, nil
}

func (f *stubFlow) AddNote(_ context.Context, id uuid.UUID, note string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failed {
		return false, fmt.Errorf("orders store down")
	}
	f.notes = append(f.notes, note)
	return true, nil
}

type fakeSaver struct {
	saved []string
}

func (f *fakeSaver) SaveUpload(_ context.Context, up forms.Upload) (forms.StoredFile, error) {
	f.saved = append(f.saved, up.Filename)
	return forms.StoredFile{
		Name:     up.Filename,
		Path:     "uploads/" + up.Filename,
		MimeType: up.MimeType,
		Size:     up.Size,
	}, nil
}

// passthroughTx runs the function directly; the in-memory repos need no
// transaction.
func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
