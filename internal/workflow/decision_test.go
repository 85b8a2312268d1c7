package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecideSynthesizeWhenClientStreamsButProviderCant(t *testing.T) {
	assert.Equal(t, SynthesizeStream, Decide(true, false, true))
}

func TestDecideCollectWhenClientWantsSingleButProviderOnlyStreams(t *testing.T) {
	assert.Equal(t, CollectStream, Decide(false, true, false))
}

func TestDecidePassthroughWhenAligned(t *testing.T) {
	assert.Equal(t, Passthrough, Decide(true, true, true))
	assert.Equal(t, Passthrough, Decide(false, true, true))
}
