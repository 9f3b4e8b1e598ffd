package consult

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetaGetSet(t *testing.T) {
	s := &Session{}
	s.MetaSet("forms.consultation.answers", map[string]any{"smoker": float64(0)})

	v, ok := s.MetaGet("forms.consultation.answers")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"smoker": float64(0)}, v)

	_, ok = s.MetaGet("forms.missing.answers")
	assert.False(t, ok)

	// Non-map intermediates are replaced, not traversed.
	s.MetaSet("flag", "yes")
	s.MetaSet("flag.nested", 1)
	v, ok = s.MetaGet("flag.nested")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestMetaSetIfEmpty(t *testing.T) {
	s := &Session{}
	assert.True(t, s.MetaSetIfEmpty("patient.phone", "0113 000000"))
	assert.False(t, s.MetaSetIfEmpty("patient.phone", "other"))

	v, _ := s.MetaGet("patient.phone")
	assert.Equal(t, "0113 000000", v)

	// Empty string counts as absent.
	s.MetaSet("patient.gp_name", "")
	assert.True(t, s.MetaSetIfEmpty("patient.gp_name", "Dr Smith"))
}

func TestMarkCompleteMonotonic(t *testing.T) {
	r := &FormResponse{}
	first := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	r.MarkComplete(first)
	require.True(t, r.IsComplete)
	require.NotNil(t, r.CompletedAt)
	assert.Equal(t, first, *r.CompletedAt)

	r.MarkComplete(first.Add(time.Hour))
	assert.Equal(t, first, *r.CompletedAt, "completion timestamp must not move")
}
