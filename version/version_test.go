package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersion(t *testing.T) {
	t.Setenv("COMMIT_SHA", "")
	assert.Equal(t, "unknown", Version())

	t.Setenv("COMMIT_SHA", "0123456789abcdef")
	assert.Equal(t, "0123456", Version())
	assert.Equal(t, "fintrack-go/0123456", UserAgent())
}
