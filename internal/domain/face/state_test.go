package face

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestStateCanCompare verifies CanCompare tracks presence of both images.
func TestStateCanCompare(t *testing.T) {
	t.Parallel()

	var s State
	require.False(t, s.CanCompare)

	s = s.WithSelfie(&Image{Data: []byte("a")})
	require.False(t, s.CanCompare)

	s = s.WithGallery(&Image{Data: []byte("b")})
	require.True(t, s.CanCompare)

	s = s.WithSelfie(nil)
	require.False(t, s.CanCompare)
}

// TestStateClone verifies the score pointer is not shared.
func TestStateClone(t *testing.T) {
	t.Parallel()

	s := State{}.WithScore(80)
	c := s.Clone()

	require.Equal(t, s, c)
	require.NotSame(t, s.SimilarityScore, c.SimilarityScore)
}

// TestDecodeImage reads the header of a generated PNG and rejects garbage.
func TestDecodeImage(t *testing.T) {
	t.Parallel()

	src := image.NewRGBA(image.Rect(0, 0, 4, 3))
	src.Set(1, 1, color.White)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	img, err := DecodeImage(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, "png", img.Format)
	require.Equal(t, 4, img.Width)
	require.Equal(t, 3, img.Height)
	require.Len(t, img.Digest(), 40)

	_, err = DecodeImage([]byte("not an image"))
	require.Error(t, err)

	_, err = DecodeImage(nil)
	require.Error(t, err)
}

// TestParseCaptureMode covers both modes and the error path.
func TestParseCaptureMode(t *testing.T) {
	t.Parallel()

	mode, err := ParseCaptureMode(" Active ")
	require.NoError(t, err)
	require.Equal(t, ActiveLiveness, mode)

	mode, err = ParseCaptureMode("passive")
	require.NoError(t, err)
	require.Equal(t, PassiveLiveness, mode)
	require.Equal(t, "passive", mode.String())

	_, err = ParseCaptureMode("blink")
	require.Error(t, err)
}
