package events

import (
	"context"
	"hash/fnv"
	"sync"
)

// keyedDispatcher fans messages out to a fixed set of shard workers, assigning
// each aggregate ID to one shard by hash. Within a shard, work items run
// strictly one at a time, so events sharing an AggregateID are processed in
// arrival order while unrelated aggregates proceed concurrently. A poison
// message never stalls other shards.
type keyedDispatcher struct {
	shards []chan func()
	wg     sync.WaitGroup
}

func newKeyedDispatcher(ctx context.Context, shardCount int) *keyedDispatcher {
	if shardCount < 1 {
		shardCount = 1
	}
	d := &keyedDispatcher{shards: make([]chan func(), shardCount)}
	for i := range d.shards {
		ch := make(chan func(), 64)
		d.shards[i] = ch
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for {
				select {
				case <-ctx.Done():
					// Drain remaining queued work so in-flight messages are
					// acked or nacked before shutdown completes.
					for {
						select {
						case fn := <-ch:
							fn()
						default:
							return
						}
					}
				case fn, ok := <-ch:
					if !ok {
						return
					}
					fn()
				}
			}
		}()
	}
	return d
}

// dispatch enqueues fn on the shard owning key, blocking if that shard's
// queue is full (backpressure, not reordering).
func (d *keyedDispatcher) dispatch(ctx context.Context, key string, fn func()) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	idx := int(h.Sum32() % uint32(len(d.shards)))
	select {
	case d.shards[idx] <- fn:
	case <-ctx.Done():
	}
}

// wait blocks until all shard workers have exited.
func (d *keyedDispatcher) wait() {
	d.wg.Wait()
}
