package queue

type config struct {
	name     string
	capacity int
}

// Option applies a configuration option to the InMemoryQueue.
type Option func(*config)

// WithCapacity sets the maximum number of queued values.
func WithCapacity(capacity int) Option {
	return func(c *config) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}

// WithName labels the queue's metrics.
func WithName(name string) Option {
	return func(c *config) {
		if name != "" {
			c.name = name
		}
	}
}
