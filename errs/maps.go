// SPDX-License-Identifier: EPL-2.0

package errs

// LookupInMap returns m[key], or an ErrNotFound error naming context when the
// key is absent.
func LookupInMap[K comparable, V any](m map[K]V, key K, context string) (V, error) {
	if v, ok := m[key]; ok {
		return v, nil
	}

	var zero V
	hint := ""
	if len(m) == 0 {
		hint = " The map is empty. Did initialization fail?"
	}
	return zero, NotFoundf("%s= %v was not found in the map.%s", context, key, hint)
}
