package store

import (
	"context"
	"reflect"

	bolt "go.etcd.io/bbolt"
)

// observe emits query's result now and again after every committed write
// that changes it. A slow reader only sees the newest result.
// The channel closes when ctx is done.
func observe[T any](ctx context.Context, s *CatalogStore, query func(tx *bolt.Tx) (T, error)) <-chan T {
	ticks, unsubscribe := s.changes.Subscribe()
	out := make(chan T)

	go func() {
		defer close(out)
		defer unsubscribe()

		var (
			last    T
			emitted bool
			pending T
			dirty   bool
		)

		load := func() {
			var v T
			err := s.db.View(func(tx *bolt.Tx) error {
				var err error
				v, err = query(tx)
				return err
			})
			if err != nil {
				s.logger.Error("observer query failed", "error", err)
				return
			}
			if emitted && reflect.DeepEqual(v, last) {
				return
			}
			last, emitted = v, true
			pending, dirty = v, true
		}

		load()
		for {
			var send chan<- T
			if dirty {
				send = out
			}
			select {
			case <-ctx.Done():
				return
			case <-ticks:
				load()
			case send <- pending:
				dirty = false
			}
		}
	}()
	return out
}
