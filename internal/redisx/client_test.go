package redisx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// The timeouts must live in the client options; a derived client from
// WithTimeout that nobody keeps has no effect.
func TestNewAppliesTimeouts(t *testing.T) {
	r := New("127.0.0.1:6379")
	defer r.Close()

	opt := r.Options()
	assert.Equal(t, "127.0.0.1:6379", opt.Addr)
	assert.Equal(t, 2*time.Second, opt.DialTimeout)
	assert.Equal(t, 2*time.Second, opt.ReadTimeout)
	assert.Equal(t, 2*time.Second, opt.WriteTimeout)
}
