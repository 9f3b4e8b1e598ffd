package forms

import (
	"io"
	"strings"
)

// Upload is a transport-agnostic view of one uploaded file, keyed by the
// posted field name it arrived under.
type Upload struct {
	Filename string
	MimeType string
	Size     int64
	Open     func() (io.ReadCloser, error)
}

// selectExcluded values never satisfy a required select, even when a schema
// author lists them as options (placeholder entries).
func selectExcluded(s string) bool {
	return s == "" || s == "0"
}

// Validate applies the dynamic per-kind rules to the submitted payload and
// returns the first violation. Rules fire only for fields resolved in this
// request: a field absent from the payload was simply not part of this save,
// so partial re-saves with disjoint key sets validate cleanly. File fields
// are the exception — their "required unless __existing carries a stored
// reference" rule fires even when nothing was posted, since that companion
// field is how a kept upload is expressed.
//
// Fail-fast, all-or-nothing: a non-nil return means the entire save must be
// rejected with no partial persistence.
func Validate(schema FormSchema, payload map[string]any, uploads map[string][]Upload) *ValidationError {
	for i, d := range schema {
		if !d.IsInput() {
			continue
		}
		key := d.StorageKey(i)
		posted, submitted := Resolve(d, i, payload)

		if d.Kind == KindFile {
			if err := validateFile(d, i, key, posted, payload, uploads); err != nil {
				return err
			}
			continue
		}

		if !submitted {
			continue
		}
		val := payload[posted]

		if !d.Required {
			if err := validateTyped(d, key, val); err != nil {
				return err
			}
			continue
		}

		switch d.Kind {
		case KindCheckbox:
			if !truthy(val) {
				return failf(key, "%s must be accepted", labelOf(d, key))
			}
		case KindSignature:
			if isEmptyValue(val) && !hasUpload(d, i, uploads) {
				return failf(key, "%s is required", labelOf(d, key))
			}
		default:
			if isEmptyValue(val) {
				return failf(key, "%s is required", labelOf(d, key))
			}
			if err := validateTyped(d, key, val); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateTyped enforces the type-specific constraints on a present value.
func validateTyped(d FieldDescriptor, key string, val any) *ValidationError {
	if isEmptyValue(val) {
		return nil
	}
	switch d.Kind {
	case KindNumber:
		n, ok := parseNumber(val)
		if !ok {
			return failf(key, "%s must be a number", labelOf(d, key))
		}
		if d.Min != nil && n < *d.Min {
			return failf(key, "%s must be at least %v", labelOf(d, key), *d.Min)
		}
		if d.Max != nil && n > *d.Max {
			return failf(key, "%s must be at most %v", labelOf(d, key), *d.Max)
		}
	case KindDate:
		if _, ok := parseDate(stringOf(val)); !ok {
			return failf(key, "%s must be a valid date", labelOf(d, key))
		}
	case KindSelect:
		s := strings.TrimSpace(stringOf(val))
		if selectExcluded(s) || !inOptions(d.Options, s) {
			return failf(key, "%s must be one of the listed options", labelOf(d, key))
		}
	case KindMultiSelect:
		items := valueList(val)
		if len(items) == 0 {
			return failf(key, "%s must be a list of options", labelOf(d, key))
		}
		for _, item := range items {
			if !inOptions(d.Options, item) {
				return failf(key, "%s contains an unknown option %q", labelOf(d, key), item)
			}
		}
	}
	return nil
}

// validateFile applies the required-without-existing rule: a required file
// field passes when a new upload arrived or the companion "__existing" field
// still carries at least one stored reference. Image-accepting fields also
// require an image mime type on new uploads.
func validateFile(d FieldDescriptor, index int, key, posted string, payload map[string]any, uploads map[string][]Upload) *ValidationError {
	var incoming []Upload
	for _, name := range Candidates(d, index) {
		if ups := uploads[name]; len(ups) > 0 {
			incoming = ups
			break
		}
	}

	if isImageAccept(d.Accept) {
		for _, up := range incoming {
			if !strings.HasPrefix(up.MimeType, "image/") {
				return failf(key, "%s must be an image", labelOf(d, key))
			}
		}
	}

	if !d.Required || len(incoming) > 0 {
		return nil
	}
	if len(existingRefs(d, index, key, payload)) > 0 {
		return nil
	}
	return failf(key, "%s is required", labelOf(d, key))
}

// existingRefs returns the previously stored file references posted under
// any "__existing" companion of the field. Older renderers post bare path
// strings, newer ones post the stored file records.
func existingRefs(d FieldDescriptor, index int, key string, payload map[string]any) []any {
	names := append(Candidates(d, index), key)
	for _, name := range names {
		v, ok := payload[name+"__existing"]
		if !ok {
			continue
		}
		switch refs := v.(type) {
		case []any:
			if len(refs) > 0 {
				return refs
			}
		case []string:
			out := make([]any, len(refs))
			for i, r := range refs {
				out[i] = r
			}
			if len(out) > 0 {
				return out
			}
		default:
			if s := strings.TrimSpace(stringOf(v)); s != "" {
				return []any{s}
			}
		}
	}
	return nil
}

func isImageAccept(accept string) bool {
	accept = strings.ToLower(accept)
	return accept == "image" || strings.HasPrefix(accept, "image/")
}

func inOptions(options []string, v string) bool {
	for _, o := range options {
		if o == v || normKey(o) == normKey(v) {
			return true
		}
	}
	return false
}

func labelOf(d FieldDescriptor, key string) string {
	if d.Label != "" {
		return d.Label
	}
	return key
}
