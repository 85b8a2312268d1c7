package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusClassBuckets(t *testing.T) {
	assert.Equal(t, "2xx", StatusClass(200))
	assert.Equal(t, "4xx", StatusClass(404))
	assert.Equal(t, "5xx", StatusClass(503))
	assert.Equal(t, "other", StatusClass(0))
}
