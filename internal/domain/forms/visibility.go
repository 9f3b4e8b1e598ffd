package forms

// Prune removes stored values for fields whose showIf condition evaluates
// false against the merged data. The evaluation runs post-merge because the
// controlling field may have been answered in an earlier save. Unknown or
// malformed conditions fail open: a schema authoring mistake must never
// destroy captured answers.
func Prune(schema FormSchema, merged map[string]any) map[string]any {
	for i, d := range schema {
		if !d.IsInput() || d.ShowIf == nil {
			continue
		}
		if Visible(*d.ShowIf, schema, merged) {
			continue
		}
		delete(merged, d.StorageKey(i))
	}
	return merged
}

// Visible evaluates one showIf condition against the merged data. The target
// field is looked up by storage key, slug-normalized; when the target holds
// an array, any matching element counts as a hit.
func Visible(c Condition, schema FormSchema, merged map[string]any) bool {
	if c.Field == "" {
		return true
	}
	val, found := lookupTarget(c.Field, schema, merged)

	switch {
	case c.Truthy:
		return found && truthy(val)
	case c.Equals != "":
		return anyElement(val, func(s string) bool { return matches(s, c.Equals) })
	case c.NotEquals != "":
		return !anyElement(val, func(s string) bool { return matches(s, c.NotEquals) })
	case len(c.In) > 0:
		return anyElement(val, func(s string) bool {
			for _, want := range c.In {
				if matches(s, want) {
					return true
				}
			}
			return false
		})
	}
	// Malformed: no recognised operator.
	return true
}

func lookupTarget(field string, schema FormSchema, merged map[string]any) (any, bool) {
	if v, ok := merged[field]; ok {
		return v, true
	}
	want := normKey(field)
	for k, v := range merged {
		if normKey(k) == want {
			return v, true
		}
	}
	// The condition may reference the target by label rather than key.
	for i, d := range schema {
		if d.IsInput() && (normKey(d.Label) == want || normKey(d.StorageKey(i)) == want) {
			if v, ok := merged[d.StorageKey(i)]; ok {
				return v, true
			}
		}
	}
	return nil, false
}

func anyElement(val any, pred func(string) bool) bool {
	switch vv := val.(type) {
	case []any:
		for _, item := range vv {
			if pred(stringOf(item)) {
				return true
			}
		}
		return false
	case []string:
		for _, item := range vv {
			if pred(item) {
				return true
			}
		}
		return false
	default:
		return pred(stringOf(val))
	}
}

// matches compares exactly first, then slug-normalized, so "Yes", "yes" and
// "YES " agree.
func matches(have, want string) bool {
	if have == want {
		return true
	}
	return normKey(have) != "" && normKey(have) == normKey(want)
}
