package qr

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPNG(t *testing.T) {
	data, err := PNG("https://certs.example.edu/v1/certs/CERT-1/verify", DefaultSize)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, DefaultSize, img.Bounds().Dx())
	require.Equal(t, DefaultSize, img.Bounds().Dy())
}

func TestPNGDefaultsSize(t *testing.T) {
	data, err := PNG("hello", 0)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, DefaultSize, img.Bounds().Dx())
}

func TestPNGContentDependent(t *testing.T) {
	a, err := PNG("https://certs.example.edu/v1/certs/CERT-1/verify", DefaultSize)
	require.NoError(t, err)
	b, err := PNG("https://certs.example.edu/v1/certs/CERT-2/verify", DefaultSize)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
