package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageKeyPriority(t *testing.T) {
	tests := []struct {
		name string
		desc FieldDescriptor
		want string
	}{
		{"explicit key wins", FieldDescriptor{Kind: KindText, Key: "smoking_status", Name: "smoking", Label: "Do you smoke?"}, "smoking_status"},
		{"name next", FieldDescriptor{Kind: KindText, Name: "smoking", Label: "Do you smoke?"}, "smoking"},
		{"label slug next", FieldDescriptor{Kind: KindText, Label: "Do you smoke?"}, "do_you_smoke"},
		{"positional fallback", FieldDescriptor{Kind: KindText}, "field_3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.desc.StorageKey(3))
		})
	}
}

func TestResolveCandidateOrder(t *testing.T) {
	desc := FieldDescriptor{
		Kind:  KindText,
		Key:   "patient_weight",
		Name:  "weight",
		Label: "Patient Weight",
	}
	got := Candidates(desc, 2)
	assert.Equal(t, []string{"weight", "patient_weight", "patient-weight", "field_2"}, got)
}

func TestResolvePicksFirstPresent(t *testing.T) {
	desc := FieldDescriptor{Kind: KindText, Key: "patient_weight", Label: "Patient Weight"}

	payload := map[string]any{"patient-weight": "82"}
	name, ok := Resolve(desc, 0, payload)
	require.True(t, ok)
	assert.Equal(t, "patient-weight", name)
}

func TestResolvePresenceIncludesEmptyString(t *testing.T) {
	desc := FieldDescriptor{Kind: KindText, Key: "notes"}
	name, ok := Resolve(desc, 0, map[string]any{"notes": ""})
	require.True(t, ok)
	assert.Equal(t, "notes", name)
}

func TestResolveNotSubmitted(t *testing.T) {
	desc := FieldDescriptor{Kind: KindText, Key: "notes"}
	_, ok := Resolve(desc, 0, map[string]any{"other": "x"})
	assert.False(t, ok)
}

func TestResolveStaticBlockNeverResolves(t *testing.T) {
	desc := FieldDescriptor{Kind: KindStatic, Key: "intro"}
	_, ok := Resolve(desc, 0, map[string]any{"intro": "ignored"})
	assert.False(t, ok)
}

func TestResolvePositionalFallback(t *testing.T) {
	desc := FieldDescriptor{Kind: KindText}
	name, ok := Resolve(desc, 7, map[string]any{"field_7": "value"})
	require.True(t, ok)
	assert.Equal(t, "field_7", name)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "do_you_smoke", Slug("Do you smoke?", "_"))
	assert.Equal(t, "do-you-smoke", Slug("Do you smoke?", "-"))
	assert.Equal(t, "bmi_over_30", Slug("  BMI over 30! ", "_"))
	assert.Equal(t, "", Slug("???", "_"))
}
