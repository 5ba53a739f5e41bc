package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"Y\n", true},
		{"  y  \r\n", true},
		{"y", true},
		{"n\n", false},
		{"yes\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompter(strings.NewReader(tt.input), &out)
			got, err := p.Confirm(context.Background(), StartPrompt)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, StartPrompt, out.String())
		})
	}
}

func TestConfirmReadsSuccessiveLines(t *testing.T) {
	p := NewPrompter(strings.NewReader("y\nn\n"), io.Discard)
	first, err := p.Confirm(context.Background(), "?")
	require.NoError(t, err)
	second, err := p.Confirm(context.Background(), "?")
	require.NoError(t, err)
	assert.True(t, first)
	assert.False(t, second)
}

func TestConfirmCancelled(t *testing.T) {
	r, w := io.Pipe()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPrompter(r, io.Discard).Confirm(ctx, "?")
	require.ErrorIs(t, err, context.Canceled)
}
