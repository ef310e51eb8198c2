package dedupe

const defaultShards = 16

// Option configures a Deduper.
type Option func(*seenSet)

// WithMaxSize caps the number of recorded ids. Zero or negative means
// unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *seenSet) {
		d.maxSize = maxSize
	}
}

// WithShards sets the number of lock shards.
func WithShards(n int) Option {
	return func(d *seenSet) {
		d.shardCount = n
	}
}
