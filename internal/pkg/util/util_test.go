package util

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFitImageKeepsAspect(t *testing.T) {
	out, err := FitImage(bytes.NewReader(pngBytes(t, 1600, 400)), 800, 800)
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 800, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestThumbnailIsExactSize(t *testing.T) {
	out, err := Thumbnail(bytes.NewReader(pngBytes(t, 640, 480)), 300, 300)
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 300, img.Bounds().Dy())
}

func TestNonImageRejected(t *testing.T) {
	_, err := FitImage(bytes.NewReader([]byte("plain text")), 800, 800)
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestGetSafeContentTypeRewinds(t *testing.T) {
	reader := bytes.NewReader(pngBytes(t, 4, 4))
	ct, err := GetSafeContentType(reader)
	require.NoError(t, err)
	assert.Equal(t, "image/png", ct)

	_, err = png.Decode(reader)
	assert.NoError(t, err)
}

func TestOptionalString(t *testing.T) {
	blank := "   "
	assert.Nil(t, OptionalString(&blank))
	assert.Nil(t, OptionalString(nil))
	v := " shop "
	assert.Equal(t, "shop", *OptionalString(&v))
	assert.Equal(t, "a@b.c", NormalizeEmail(" A@B.c "))
}

type sample struct {
	Email string `json:"email" validate:"required,email"`
	Page  int    `form:"page" validate:"gte=1"`
}

func TestValidateDTO(t *testing.T) {
	assert.NoError(t, ValidateDTO(&sample{Email: "a@b.co", Page: 1}))

	var fe *FieldError
	require.ErrorAs(t, ValidateDTO(&sample{Email: "nope", Page: 1}), &fe)
	assert.Equal(t, "email", fe.Field)
	assert.Equal(t, "email", fe.Rule)

	require.ErrorAs(t, ValidateDTO(&sample{Email: "a@b.co"}), &fe)
	assert.Equal(t, "page", fe.Field)
	assert.Equal(t, "gte", fe.Rule)
}
