// Package reactive provides the fine-grained signal graph behind the live
// binding layer.
//
// Reading a signal while a derived computation is evaluating automatically
// records it as a dependency. Writes push changes through the graph
// synchronously, so a binding only re-renders the nodes whose inputs actually
// changed.
//
// # Core Types
//
// Source[T] is a mutable leaf:
//
//	count := Ref(0)
//	value := count.Value() // Read (recorded by the active evaluation)
//	count.Set(5)           // Write (notifies followers when the value changed)
//
// Derived[T] is a lazily evaluated computation:
//
//	doubled := Computed(func() int { return count.Value() * 2 })
//
// A Derived with no followers is cold: every read reruns the callback and
// nothing is cached or subscribed, so readers depend directly on its sources.
// Once followed it turns hot, caches its value and subscribes to exactly the
// signals its last evaluation read. Dropping the last follower releases every
// one of those subscriptions.
//
// Effect runs a callback now and again whenever what it read changes:
//
//	stop := Effect(func() {
//	    fmt.Println("count is", count.Value())
//	})
//	defer stop()
//
// # Threading
//
// The graph is single-threaded. Every signal must be created, read and
// written from one goroutine; nothing here takes a lock. Work arriving from
// other goroutines is funneled onto that goroutine through a Loop, which is
// also the Dispatcher that Awaited delivers results through.
package reactive
