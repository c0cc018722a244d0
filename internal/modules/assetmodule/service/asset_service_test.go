package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chai2010/webp"
	"github.com/mantonx/streamhub/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newService(t *testing.T, maxSize int64) (*assetServiceImpl, string) {
	t.Helper()
	root := t.TempDir()
	svc := NewAssetService(Options{Settings: Settings{
		RootDir:       root,
		URLPrefix:     "/media/",
		MaxUploadSize: maxSize,
		Quality:       80,
	}})
	return svc.(*assetServiceImpl), root
}

func TestStoreImageConvertsToWebP(t *testing.T) {
	svc, root := newService(t, 1<<20)

	asset, err := svc.StoreImage(context.Background(), "posters", "cover.png", bytes.NewReader(pngBytes(t, 12, 8)))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(asset.Path, "posters/"))
	assert.True(t, strings.HasSuffix(asset.Path, ".webp"))
	assert.Equal(t, "/media/"+asset.Path, asset.URL)

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(asset.Path)))
	require.NoError(t, err)
	assert.EqualValues(t, len(data), asset.Size)

	decoded, err := webp.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 12, decoded.Bounds().Dx())
	assert.Equal(t, 8, decoded.Bounds().Dy())

	entries, err := os.ReadDir(filepath.Join(root, "posters"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestStoreImageAcceptsWebP(t *testing.T) {
	svc, _ := newService(t, 1<<20)

	var buf bytes.Buffer
	require.NoError(t, webp.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4)), &webp.Options{Lossless: true}))

	_, err := svc.StoreImage(context.Background(), "profile_pictures", "me.webp", &buf)
	assert.NoError(t, err)
}

func TestStoreImageRejectsNonImages(t *testing.T) {
	svc, root := newService(t, 1<<20)

	_, err := svc.StoreImage(context.Background(), "posters", "notes.txt", strings.NewReader("just some text"))
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrorCodeUnsupportedMedia, appErr.Code)
	assert.Equal(t, http.StatusUnsupportedMediaType, appErr.HTTPStatus)

	// a PNG signature followed by garbage sniffs as PNG but fails to decode
	corrupt := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0xff}, 64)...)
	_, err = svc.StoreImage(context.Background(), "posters", "broken.png", bytes.NewReader(corrupt))
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrorCodeUnsupportedMedia, appErr.Code)

	_, statErr := os.Stat(filepath.Join(root, "posters"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestStoreImageEnforcesSizeLimit(t *testing.T) {
	data := pngBytes(t, 16, 16)
	svc, _ := newService(t, int64(len(data)-1))

	_, err := svc.StoreImage(context.Background(), "posters", "big.png", bytes.NewReader(data))
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrorCodePayloadTooLarge, appErr.Code)
	assert.Equal(t, http.StatusRequestEntityTooLarge, appErr.HTTPStatus)
}

func TestStoreImageRejectsBadKind(t *testing.T) {
	svc, _ := newService(t, 1<<20)
	for _, kind := range []string{"", "../etc", "Posters", "a/b"} {
		_, err := svc.StoreImage(context.Background(), kind, "x.png", bytes.NewReader(pngBytes(t, 2, 2)))
		assert.Error(t, err, kind)
	}
}

func TestRemove(t *testing.T) {
	svc, root := newService(t, 1<<20)
	ctx := context.Background()

	asset, err := svc.StoreImage(ctx, "posters", "cover.png", bytes.NewReader(pngBytes(t, 4, 4)))
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, asset.Path))
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(asset.Path)))
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, svc.Remove(ctx, asset.Path), "removing a missing file is not an error")
	assert.ErrorIs(t, svc.Remove(ctx, "../outside.webp"), ErrInvalidPath)
	assert.ErrorIs(t, svc.Remove(ctx, ""), ErrInvalidPath)
}

func TestURL(t *testing.T) {
	svc, _ := newService(t, 1)
	assert.Equal(t, "/media/posters/a.webp", svc.URL("posters/a.webp"))
	assert.Equal(t, "/media/posters/a.webp", svc.URL("/posters/a.webp"))
	assert.Empty(t, svc.URL(""))
}

func TestEnsurePlaceholder(t *testing.T) {
	root := t.TempDir()
	rel := "profile_pictures/default.webp"

	require.NoError(t, EnsurePlaceholder(root, rel, 8))
	full := filepath.Join(root, "profile_pictures", "default.webp")
	data, err := os.ReadFile(full)
	require.NoError(t, err)
	img, err := webp.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())

	require.NoError(t, os.WriteFile(full, []byte("custom"), 0o644))
	require.NoError(t, EnsurePlaceholder(root, rel, 8))
	data, err = os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "custom", string(data), "an existing picture is kept")
}

func TestStoreImageEnforcesPixelLimit(t *testing.T) {
	root := t.TempDir()
	svc := NewAssetService(Options{Settings: Settings{
		RootDir:       root,
		URLPrefix:     "/media",
		MaxUploadSize: 1 << 20,
		MaxPixels:     1000,
	}})

	// a flat 4000x4000 PNG compresses to a few kilobytes but decodes to 16M pixels
	var flat bytes.Buffer
	require.NoError(t, png.Encode(&flat, image.NewGray(image.Rect(0, 0, 4000, 4000))))
	require.Less(t, flat.Len(), 1<<20)

	var lossless bytes.Buffer
	require.NoError(t, webp.Encode(&lossless, image.NewGray(image.Rect(0, 0, 40, 40)), &webp.Options{Lossless: true}))

	for name, data := range map[string][]byte{"huge.png": flat.Bytes(), "wide.webp": lossless.Bytes()} {
		_, err := svc.StoreImage(context.Background(), "posters", name, bytes.NewReader(data))
		var appErr *types.AppError
		require.True(t, errors.As(err, &appErr), name)
		assert.Equal(t, types.ErrorCodePayloadTooLarge, appErr.Code, name)
		assert.Equal(t, http.StatusRequestEntityTooLarge, appErr.HTTPStatus, name)
	}

	_, err := svc.StoreImage(context.Background(), "posters", "small.png", bytes.NewReader(pngBytes(t, 30, 30)))
	assert.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(root, "posters"))
	require.NoError(t, statErr)
	entries, err := os.ReadDir(filepath.Join(root, "posters"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
