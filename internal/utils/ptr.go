package utils

func Ptr[T any](v T) *T {
	return &v
}

// Deref returns *v, or fallback when v is nil. Slot ids start at 0, so
// callers pick a fallback that cannot be a real id.
func Deref[T any](v *T, fallback T) T {
	if v == nil {
		return fallback
	}
	return *v
}

// Ptrs maps a slice of values to a slice of pointers to copies of them.
func Ptrs[T any](values []T) []*T {
	out := make([]*T, len(values))
	for i := range values {
		out[i] = Ptr(values[i])
	}
	return out
}
