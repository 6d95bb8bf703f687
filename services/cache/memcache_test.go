package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// This test requires a running memcached instance
// If memcached is not available, the test will be skipped
func TestMemcacheService(t *testing.T) {
	mc := NewMemcacheService("localhost:11211")

	if err := mc.Ping(); err != nil {
		t.Skip("Memcached is not available, skipping test")
	}

	err := mc.Set("block:www.amazon.com", []byte("300"), 1*time.Second)
	assert.NoError(t, err)

	value, err := mc.Get("block:www.amazon.com")
	assert.NoError(t, err)
	assert.Equal(t, "300", string(value))

	err = mc.Delete("block:www.amazon.com")
	assert.NoError(t, err)

	_, err = mc.Get("block:www.amazon.com")
	assert.ErrorIs(t, err, ErrCacheMiss)

	// Deleting a missing key is not an error
	assert.NoError(t, mc.Delete("block:www.amazon.com"))
}
