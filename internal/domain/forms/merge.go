package forms

// Merge unions previously stored data with a newly normalized payload. Keys
// present in the new payload overwrite the old value; every other stored key
// survives untouched. Nested objects merge recursively so partial updates to
// a sub-document do not drop its siblings. Neither input is mutated.
func Merge(old, new map[string]any) map[string]any {
	out := make(map[string]any, len(old)+len(new))
	for k, v := range old {
		out[k] = v
	}
	for k, v := range new {
		newMap, newOK := v.(map[string]any)
		oldMap, oldOK := out[k].(map[string]any)
		if newOK && oldOK {
			out[k] = Merge(oldMap, newMap)
			continue
		}
		out[k] = v
	}
	return out
}
