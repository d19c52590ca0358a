package redis

import "github.com/redis/rueidis"

// NewSourceForTest creates a Source with the provided rueidis client (test-only).
func NewSourceForTest(c rueidis.Client, keyPrefix string) *Source {
	return &Source{client: c, keyPrefix: keyPrefix}
}
