package forms

import (
	"context"
	"fmt"
	"strings"
)

// FileSaver persists one uploaded file to durable storage and returns its
// stored representation. The platform storage package implements it.
type FileSaver interface {
	SaveUpload(ctx context.Context, up Upload) (StoredFile, error)
}

// Normalize coerces the raw submitted payload into canonical typed values
// keyed by storage key. Coercion policy:
//
//   - checkboxes are always explicit: 0 when absent/falsy, 1 when truthy
//   - multi-selects are always arrays, even for a single posted scalar
//   - free text is trimmed; blank-after-trim is dropped so a later merge
//     cannot overwrite a prior answer with nothing
//   - new uploads are stored and replace the field's value as a list of
//     StoredFile records; with no new upload, a posted "__existing" list is
//     carried forward verbatim
//
// Any submitted key the schema does not account for is mapped in through the
// nested-answers fallback (see mergeUnmatched) so no answer is ever lost.
func Normalize(ctx context.Context, schema FormSchema, payload map[string]any, uploads map[string][]Upload, store FileSaver) (map[string]any, error) {
	out := make(map[string]any)
	consumed := make(map[string]bool)

	for i, d := range schema {
		if !d.IsInput() {
			continue
		}
		key := d.StorageKey(i)
		posted, submitted := Resolve(d, i, payload)
		if submitted {
			consumed[posted] = true
		}

		if d.Kind == KindFile || (d.Kind == KindSignature && hasUpload(d, i, uploads)) {
			val, took, err := normalizeFiles(ctx, d, i, key, payload, uploads, store)
			if err != nil {
				return nil, err
			}
			for _, name := range took {
				consumed[name] = true
			}
			if val != nil {
				out[key] = val
			}
			continue
		}

		// Browsers omit unticked checkboxes from the payload entirely, so
		// the explicit 0 is written even when the field never arrived.
		if d.Kind == KindCheckbox {
			if submitted && truthy(payload[posted]) {
				out[key] = 1
			} else {
				out[key] = 0
			}
			continue
		}

		if !submitted {
			continue
		}
		raw := payload[posted]

		switch d.Kind {
		case KindMultiSelect:
			out[key] = valueList(raw)
		case KindNumber:
			if n, ok := parseNumber(raw); ok {
				out[key] = n
			}
		default:
			if s := strings.TrimSpace(stringOf(raw)); s != "" {
				out[key] = s
			}
		}
	}

	mergeUnmatched(schema, payload, consumed, out)
	return out, nil
}

// normalizeFiles stores any new uploads for the field, or carries forward the
// posted "__existing" reference list when nothing new arrived. It returns the
// field's new value (nil when the field is untouched this request) and the
// payload names it consumed.
func normalizeFiles(ctx context.Context, d FieldDescriptor, index int, key string, payload map[string]any, uploads map[string][]Upload, store FileSaver) (any, []string, error) {
	var consumed []string
	for _, name := range Candidates(d, index) {
		ups := uploads[name]
		if len(ups) == 0 {
			continue
		}
		consumed = append(consumed, name)
		stored := make([]any, 0, len(ups))
		for _, up := range ups {
			sf, err := store.SaveUpload(ctx, up)
			if err != nil {
				return nil, nil, fmt.Errorf("store upload for %s: %w", key, err)
			}
			stored = append(stored, map[string]any{
				"name":     sf.Name,
				"path":     sf.Path,
				"mimeType": sf.MimeType,
				"size":     sf.Size,
			})
		}
		return stored, consumed, nil
	}

	if refs := existingRefs(d, index, key, payload); refs != nil {
		for _, name := range append(Candidates(d, index), key) {
			if _, ok := payload[name+"__existing"]; ok {
				consumed = append(consumed, name+"__existing")
			}
		}
		return refs, consumed, nil
	}
	return nil, consumed, nil
}

func hasUpload(d FieldDescriptor, index int, uploads map[string][]Upload) bool {
	for _, name := range Candidates(d, index) {
		if len(uploads[name]) > 0 {
			return true
		}
	}
	return false
}

// mergeUnmatched is the loss-prevention fallback. Submitted keys the schema
// did not resolve — including an arbitrary nested "answers" structure — are
// mapped onto storage keys by slug-normalized lookup, or inserted under
// their own normalized name when no schema key matches.
func mergeUnmatched(schema FormSchema, payload map[string]any, consumed map[string]bool, out map[string]any) {
	flat := make(map[string]any)
	for name, v := range payload {
		if consumed[name] || isControlKey(name) || strings.HasSuffix(name, "__existing") {
			continue
		}
		flatten(name, v, flat)
	}

	// slug -> storage key index for the schema
	keyBySlug := make(map[string]string, len(schema))
	for i, d := range schema {
		if !d.IsInput() {
			continue
		}
		key := d.StorageKey(i)
		keyBySlug[normKey(key)] = key
		if d.Label != "" {
			keyBySlug[normKey(d.Label)] = key
		}
	}

	for name, v := range flat {
		if isEmptyValue(v) {
			continue
		}
		norm := normKey(name)
		if norm == "" {
			continue
		}
		target, ok := keyBySlug[norm]
		if !ok {
			target = norm
		}
		if _, taken := out[target]; taken {
			continue
		}
		if s, isStr := v.(string); isStr {
			v = strings.TrimSpace(s)
		}
		out[target] = v
	}
}

// flatten turns nested answer objects into dot-path keys. The "answers"
// wrapper itself is elided so answers.smoking becomes smoking.
func flatten(prefix string, v any, into map[string]any) {
	if m, ok := v.(map[string]any); ok {
		for k, sub := range m {
			p := prefix + "." + k
			if prefix == "answers" || prefix == "" {
				p = k
			}
			flatten(p, sub, into)
		}
		return
	}
	if prefix == "answers" {
		return
	}
	into[prefix] = v
}

// Control keys carried alongside field data by the save endpoint.
func isControlKey(name string) bool {
	switch name {
	case "mark_complete", "go_next", "step", "tab", "form", "form_id", "session_id", "_method", "_token":
		return true
	}
	return false
}
