package forms

import (
	"fmt"
	"strings"
)

// Candidates returns the ordered list of posted field names a descriptor may
// appear under. Historical renderers posted under the declared name, the
// storage key with either separator, or a slug of the label; the positional
// fallback matches payloads generated with no metadata at all.
func Candidates(d FieldDescriptor, index int) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}

	add(d.Name)
	add(d.Key)
	add(swapSeparators(d.Key))
	add(Slug(d.Label, "_"))
	add(Slug(d.Label, "-"))
	add(fmt.Sprintf("field_%d", index))
	return out
}

// Resolve finds the posted name a descriptor's value arrived under. Presence
// in the payload is enough: empty strings and file markers count, only a
// missing key does not. The second return is false when the field was not
// submitted in this request.
func Resolve(d FieldDescriptor, index int, payload map[string]any) (string, bool) {
	if !d.IsInput() {
		return "", false
	}
	for _, name := range Candidates(d, index) {
		if _, ok := payload[name]; ok {
			return name, true
		}
	}
	return "", false
}

func swapSeparators(s string) string {
	if s == "" {
		return ""
	}
	swapped := strings.Map(func(r rune) rune {
		switch r {
		case '_':
			return '-'
		case '-':
			return '_'
		}
		return r
	}, s)
	if swapped == s {
		return ""
	}
	return swapped
}
