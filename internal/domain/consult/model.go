// Package consult implements consultation sessions: saving schema-driven
// form answers against a session and completing the consultation.
package consult

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Session statuses.
const (
	SessionInProgress = "in_progress"
	SessionCompleted  = "completed"
)

// Session is one consultation run against an order.
type Session struct {
	ID        uuid.UUID      `json:"id"`
	OrderID   uuid.UUID      `json:"order_id"`
	UserID    uuid.UUID      `json:"user_id"`
	Service   string         `json:"service"`
	Status    string         `json:"status"`
	Meta      map[string]any `json:"meta"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// FormResponse holds the accumulated answers for one form type within a
// session. A session carries at most one response per form type.
type FormResponse struct {
	ID          uuid.UUID      `json:"id"`
	SessionID   uuid.UUID      `json:"session_id"`
	FormType    string         `json:"form_type"`
	Data        map[string]any `json:"data"`
	IsComplete  bool           `json:"is_complete"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CreatedBy   string         `json:"created_by,omitempty"`
	UpdatedBy   string         `json:"updated_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// MarkComplete flips the response to complete. Completion is monotonic: once
// set, later saves never clear the flag or move the timestamp.
func (r *FormResponse) MarkComplete(now time.Time) {
	if r.IsComplete {
		return
	}
	r.IsComplete = true
	r.CompletedAt = &now
}

// MetaGet reads a dotted path out of the session meta, e.g.
// "forms.consultation.answers".
func (s *Session) MetaGet(path string) (any, bool) {
	if s.Meta == nil {
		return nil, false
	}
	cur := any(s.Meta)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// MetaSet writes a dotted path into the session meta, creating intermediate
// maps as needed. Non-map intermediates are replaced.
func (s *Session) MetaSet(path string, value any) {
	if s.Meta == nil {
		s.Meta = map[string]any{}
	}
	parts := strings.Split(path, ".")
	m := s.Meta
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

// MetaSetIfEmpty writes the path only when it is currently absent or holds an
// empty value. Used for hydration so saved answers never clobber curated data.
func (s *Session) MetaSetIfEmpty(path string, value any) bool {
	if cur, ok := s.MetaGet(path); ok {
		switch v := cur.(type) {
		case nil:
		case string:
			if v != "" {
				return false
			}
		default:
			return false
		}
	}
	s.MetaSet(path, value)
	return true
}
