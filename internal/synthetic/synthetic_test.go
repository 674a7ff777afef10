package synthetic

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/e7canasta/orion-care-sensor/modules/framepipe"
)

func TestReader_YieldsCountFramesThenEOF(t *testing.T) {
	src, err := NewReader(4, 2, 3).Open(context.Background(), "pattern")
	require.NoError(t, err)
	defer src.Close()

	for i := 0; i < 3; i++ {
		f, err := src.ReadNext()
		require.NoError(t, err)
		assert.Equal(t, 4, f.Width)
		assert.Equal(t, 2, f.Height)
		assert.Equal(t, framepipe.FormatBGR, f.Format)
		assert.Len(t, f.Data, f.Size())
		assert.NotEmpty(t, f.TraceID)
		assert.False(t, f.Timestamp.IsZero())
	}

	_, err = src.ReadNext()
	assert.ErrorIs(t, err, io.EOF)
	_, err = src.ReadNext()
	assert.ErrorIs(t, err, io.EOF, "EOF is sticky")
}

func TestReader_EmptyStream(t *testing.T) {
	src, err := NewReader(2, 2, 0).Open(context.Background(), "empty")
	require.NoError(t, err)

	_, err = src.ReadNext()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_OpenErrors(t *testing.T) {
	tests := []struct {
		name string
		r    *Reader
	}{
		{"zero width", NewReader(0, 2, 1)},
		{"negative height", NewReader(2, -1, 1)},
		{"negative count", NewReader(2, 2, -1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.r.Open(context.Background(), "bad")
			assert.ErrorIs(t, err, framepipe.ErrOpen)
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewReader(2, 2, 1).Open(ctx, "cancelled")
	assert.ErrorIs(t, err, framepipe.ErrOpen)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSource_ReadAfterClose(t *testing.T) {
	src, err := NewReader(2, 2, 5).Open(context.Background(), "x")
	require.NoError(t, err)
	require.NoError(t, src.Close())

	_, err = src.ReadNext()
	assert.ErrorIs(t, err, framepipe.ErrRead)
}

func TestPattern(t *testing.T) {
	p0 := Pattern(3, 2, 0)
	p1 := Pattern(3, 2, 1)

	require.Len(t, p0, 18)
	// Pixel (x=2, y=1) of frame 0: B=2, G=1, R=3.
	assert.Equal(t, []byte{2, 1, 3}, p0[15:18])
	assert.Equal(t, []byte{3, 2, 4}, p1[15:18])
	assert.Equal(t, p0, Pattern(3, 2, 256), "pattern repeats every 256 frames")
	assert.NotEqual(t, p0, p1)
}
