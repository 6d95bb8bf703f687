package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound2(t *testing.T) {
	assert.Equal(t, 20.0, Round2(59.99-39.99))
	assert.Equal(t, 33.34, Round2(33.335000001))
	assert.Equal(t, 5553.0, Round2(4.5*1234))
	assert.Equal(t, 0.0, Round2(0))
}

func TestCompactMarkup(t *testing.T) {
	raw := "<div>\n    <span> a b </span>\n</div>"
	assert.Equal(t, "<div><span> a b </span></div>", CompactMarkup(raw))
}
