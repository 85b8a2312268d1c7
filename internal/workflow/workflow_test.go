package workflow

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSynthesizesWhenProviderCannotStream(t *testing.T) {
	d := Dispatcher{
		DispatchNonStream: func(ctx context.Context) ([]byte, error) {
			return []byte(`{"id":"x","choices":[{"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}]}`), nil
		},
	}
	out, err := Run(context.Background(), "gpt-4", true, Capability{SupportsNonStream: true}, d)
	require.NoError(t, err)
	assert.Len(t, out.Chunks, 2)
	assert.Nil(t, out.Message)
}

func TestRunCollectsWhenProviderOnlyStreams(t *testing.T) {
	d := Dispatcher{
		DispatchStream: func(ctx context.Context) (io.Reader, error) {
			return strings.NewReader("data: {\"id\":\"x\",\"choices\":[{\"delta\":{\"content\":\"hi\"},\"finish_reason\":\"stop\"}]}\n\ndata: [DONE]\n\n"), nil
		},
	}
	out, err := Run(context.Background(), "gpt-4", false, Capability{SupportsStream: true}, d)
	require.NoError(t, err)
	assert.Contains(t, string(out.Message), `"content":"hi"`)
}

func TestRunPassesThroughWhenAligned(t *testing.T) {
	d := Dispatcher{
		DispatchNonStream: func(ctx context.Context) ([]byte, error) {
			return []byte(`{"ok":true}`), nil
		},
	}
	out, err := Run(context.Background(), "gpt-4", false, Capability{SupportsNonStream: true, SupportsStream: true}, d)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"ok":true}`), out.Message)
}
