package stream

import "context"

// Combine2 emits fn(latestA, latestB) whenever either input emits, once both
// have emitted at least once. A slow reader only sees the newest combination.
// The output closes when ctx is done or both inputs are closed.
func Combine2[A, B, R any](ctx context.Context, a <-chan A, b <-chan B, fn func(A, B) R) <-chan R {
	out := make(chan R)
	go func() {
		defer close(out)

		var (
			lastA   A
			lastB   B
			haveA   bool
			haveB   bool
			pending R
			dirty   bool
		)
		for a != nil || b != nil || dirty {
			var send chan<- R
			if dirty {
				send = out
			}

			select {
			case <-ctx.Done():
				return
			case v, ok := <-a:
				if !ok {
					a = nil
					continue
				}
				lastA, haveA = v, true
			case v, ok := <-b:
				if !ok {
					b = nil
					continue
				}
				lastB, haveB = v, true
			case send <- pending:
				dirty = false
				continue
			}

			if haveA && haveB {
				pending = fn(lastA, lastB)
				dirty = true
			}
		}
	}()
	return out
}

// Map applies fn to every value of in.
func Map[T, R any](ctx context.Context, in <-chan T, fn func(T) R) <-chan R {
	out := make(chan R)
	go func() {
		defer close(out)
		for v := range in {
			select {
			case out <- fn(v):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
