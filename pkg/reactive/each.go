package reactive

type eachEntry[T, R any] struct {
	result R
	value  *Source[T]
	index  *Source[int]
}

// Each maps a list signal to a list of results, keeping one result per key.
//
// as is called once per new key with signals for the item and its position;
// when an existing key moves or its item changes, those signals are set
// instead of calling as again. Keys missing from the latest list are
// forgotten. Items sharing a key share a result.
//
// Example:
//
//	rows := Each(todos,
//	    func(t Todo, _ int) int { return t.ID },
//	    func(t Signal[Todo], i Signal[int]) *Row { return newRow(t, i) })
func Each[T any, K comparable, R any](
	list Signal[[]T],
	key func(item T, index int) K,
	as func(item Signal[T], index Signal[int]) R,
) *Derived[[]R] {
	rt := list.runtime()
	cache := make(map[K]*eachEntry[T, R])

	return NewDerived(rt, func() []R {
		items := list.Value()
		out := make([]R, len(items))

		rt.Untrack(func() {
			seen := make(map[K]struct{}, len(items))
			for i, item := range items {
				k := key(item, i)
				seen[k] = struct{}{}
				if e, ok := cache[k]; ok {
					e.value.Set(item)
					e.index.Set(i)
					out[i] = e.result
					continue
				}
				e := &eachEntry[T, R]{
					value: NewSource(rt, item),
					index: NewSource(rt, i),
				}
				e.result = as(e.value, e.index)
				cache[k] = e
				out[i] = e.result
			}
			for k := range cache {
				if _, ok := seen[k]; !ok {
					delete(cache, k)
				}
			}
		})

		return out
	})
}
