package forms

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FieldKind identifies a field descriptor's rendering/validation behaviour.
type FieldKind string

const (
	KindText        FieldKind = "text"
	KindTextarea    FieldKind = "textarea"
	KindNumber      FieldKind = "number"
	KindDate        FieldKind = "date"
	KindSelect      FieldKind = "select-single"
	KindMultiSelect FieldKind = "select-multiple"
	KindCheckbox    FieldKind = "checkbox"
	KindFile        FieldKind = "file"
	KindSignature   FieldKind = "signature"
	KindStatic      FieldKind = "static-block"
)

// Condition is a declarative showIf rule referencing another field's stored
// value. Exactly one of Equals/In/NotEquals/Truthy is expected; a condition
// that sets none of them is treated as malformed and evaluates visible.
type Condition struct {
	Field     string   `json:"field"`
	Equals    string   `json:"equals,omitempty"`
	In        []string `json:"in,omitempty"`
	NotEquals string   `json:"notEquals,omitempty"`
	Truthy    bool     `json:"truthy,omitempty"`
}

// FieldDescriptor is one entry of a clinician-authored form schema. Fields
// carry no compile-time meaning; everything is interpreted off the Kind tag.
type FieldDescriptor struct {
	Kind     FieldKind  `json:"type"`
	Key      string     `json:"key,omitempty"`
	Name     string     `json:"name,omitempty"`
	Label    string     `json:"label,omitempty"`
	Required bool       `json:"required,omitempty"`
	Min      *float64   `json:"min,omitempty"`
	Max      *float64   `json:"max,omitempty"`
	Options  []string   `json:"options,omitempty"`
	Accept   string     `json:"accept,omitempty"`
	ShowIf   *Condition `json:"showIf,omitempty"`
}

// IsInput reports whether the descriptor carries a submitted value. Static
// blocks render content only and never resolve to a storage key.
func (d FieldDescriptor) IsInput() bool { return d.Kind != KindStatic }

// IsFileKind reports whether the descriptor stores uploaded file references.
func (d FieldDescriptor) IsFileKind() bool {
	return d.Kind == KindFile || d.Kind == KindSignature
}

// StorageKey computes the stable key a field's value is persisted under.
// Priority: explicit key > declared name > slug of label > positional
// fallback. Every non-static field resolves to exactly one key.
func (d FieldDescriptor) StorageKey(index int) string {
	if d.Key != "" {
		return d.Key
	}
	if d.Name != "" {
		return d.Name
	}
	if s := Slug(d.Label, "_"); s != "" {
		return s
	}
	return fmt.Sprintf("field_%d", index)
}

// FormSchema is an ordered sequence of field descriptors.
type FormSchema []FieldDescriptor

// ClinicForm is a named, versioned clinical form template.
type ClinicForm struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Slug      string     `db:"slug" json:"slug"`
	FormType  string     `db:"form_type" json:"form_type"`
	Service   string     `db:"service" json:"service,omitempty"`
	Step      int        `db:"step" json:"step"`
	Version   int        `db:"version" json:"version"`
	Active    bool       `db:"active" json:"active"`
	Schema    FormSchema `db:"schema" json:"schema"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// StoredFile is the persisted representation of one uploaded attachment.
type StoredFile struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// DecodeSchema parses a JSONB schema column into a FormSchema.
func DecodeSchema(raw []byte) (FormSchema, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var s FormSchema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode form schema: %w", err)
	}
	return s, nil
}
