package reactive

// Derive returns a derived signal that applies fn to the value of s.
// It lives on the same runtime as s.
//
// Example:
//
//	label := Derive(count, func(n int) string { return strconv.Itoa(n) })
func Derive[T, U any](s Signal[T], fn func(T) U) *Derived[U] {
	return NewDerived(s.runtime(), func() U {
		return fn(s.Value())
	})
}
