// Package dedupe tracks item ids already handled in one engine run.
package dedupe

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
)

// Deduper records seen ids so each item is handled at most once per run.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a later pass may handle it again.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

type shard struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// seenSet spreads ids across lock-guarded shards so concurrent workers in a
// chunk rarely contend on the same mutex.
type seenSet struct {
	shards     []*shard
	shardCount int
	maxSize    int
	size       atomic.Int64
}

// New creates an empty per-run deduper.
func New(opts ...Option) Deduper {
	d := &seenSet{shardCount: defaultShards}
	for _, opt := range opts {
		opt(d)
	}
	if d.shardCount < 1 {
		d.shardCount = 1
	}
	d.shards = make([]*shard, d.shardCount)
	for i := range d.shards {
		d.shards[i] = &shard{seen: make(map[string]struct{})}
	}
	return d
}

func (d *seenSet) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return d.shards[h.Sum32()%uint32(len(d.shards))]
}

// SeenAndRecord implements Deduper. Once maxSize ids are held, new ids are
// reported as unseen but not recorded.
func (d *seenSet) SeenAndRecord(_ context.Context, id string) bool {
	s := d.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[id]; ok {
		return true
	}
	if d.maxSize > 0 && d.size.Load() >= int64(d.maxSize) {
		return false
	}
	s.seen[id] = struct{}{}
	d.size.Add(1)
	return false
}

// Unrecord implements Deduper.
func (d *seenSet) Unrecord(_ context.Context, id string) {
	s := d.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[id]; ok {
		delete(s.seen, id)
		d.size.Add(-1)
	}
}

// Size returns the number of recorded ids.
func (d *seenSet) Size() int64 {
	return d.size.Load()
}
