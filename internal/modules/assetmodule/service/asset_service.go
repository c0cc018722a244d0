// Package service stores uploaded images under the media root as WebP
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/chai2010/webp"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/streamhub/internal/events"
	"github.com/mantonx/streamhub/internal/services"
	"github.com/mantonx/streamhub/internal/types"
)

const eventSource = "system.assets"

// defaultMaxPixels bounds the decoded size of an upload when no cap is set
const defaultMaxPixels = 25_000_000

var kindPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ErrInvalidPath indicates a relative path that leaves the media root
var ErrInvalidPath = errors.New("path escapes the media root")

// Settings configure where and how images are stored
type Settings struct {
	RootDir       string
	URLPrefix     string
	MaxUploadSize int64
	// MaxPixels caps width*height so a small file cannot expand into a
	// huge bitmap
	MaxPixels int64
	Quality   int
}

// Options carries the collaborators of the asset service
type Options struct {
	Settings Settings
	Bus      events.EventBus
	Logger   hclog.Logger
}

// assetServiceImpl implements the AssetService interface
type assetServiceImpl struct {
	settings Settings
	bus      events.EventBus
	logger   hclog.Logger
}

// NewAssetService creates a new asset service implementation
func NewAssetService(opts Options) services.AssetService {
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	if opts.Settings.Quality <= 0 || opts.Settings.Quality > 100 {
		opts.Settings.Quality = 85
	}
	if opts.Settings.MaxPixels <= 0 {
		opts.Settings.MaxPixels = defaultMaxPixels
	}
	opts.Settings.URLPrefix = strings.TrimSuffix(opts.Settings.URLPrefix, "/")
	return &assetServiceImpl{settings: opts.Settings, bus: opts.Bus, logger: opts.Logger}
}

// StoreImage decodes an uploaded JPEG, PNG, GIF or WebP image and writes it
// as <kind>/<uuid>.webp under the media root
func (s *assetServiceImpl) StoreImage(ctx context.Context, kind, filename string, r io.Reader) (*types.StoredAsset, error) {
	if !kindPattern.MatchString(kind) {
		return nil, fmt.Errorf("invalid asset kind %q", kind)
	}

	data, err := io.ReadAll(io.LimitReader(r, s.settings.MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.settings.MaxUploadSize {
		return nil, types.NewAppError(types.ErrorCodePayloadTooLarge,
			fmt.Sprintf("File too large. The limit is %d bytes.", s.settings.MaxUploadSize),
			http.StatusRequestEntityTooLarge)
	}

	mime := mimetype.Detect(data)
	cfg, err := decodeConfig(mime.String(), data)
	if err == nil && int64(cfg.Width)*int64(cfg.Height) > s.settings.MaxPixels {
		s.logger.Debug("rejected upload", "filename", filename, "width", cfg.Width, "height", cfg.Height)
		return nil, types.NewAppError(types.ErrorCodePayloadTooLarge,
			fmt.Sprintf("Image too large. The limit is %d pixels.", s.settings.MaxPixels),
			http.StatusRequestEntityTooLarge)
	}

	var img image.Image
	if err == nil {
		img, err = decodeImage(mime.String(), data)
	}
	if err != nil {
		s.logger.Debug("rejected upload", "filename", filename, "mime", mime.String(), "error", err)
		return nil, types.NewAppErrorWithCause(types.ErrorCodeUnsupportedMedia,
			"Upload a valid image. The file you uploaded was either not an image or a corrupted image.",
			http.StatusUnsupportedMediaType, err)
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(s.settings.Quality)}); err != nil {
		return nil, fmt.Errorf("failed to encode as WebP: %w", err)
	}

	relPath := path.Join(kind, uuid.New().String()+".webp")
	if err := s.write(relPath, buf.Bytes()); err != nil {
		return nil, err
	}

	asset := &types.StoredAsset{Path: relPath, URL: s.URL(relPath), Size: int64(buf.Len())}
	s.logger.Info("image stored", "path", relPath, "source", filename, "bytes", asset.Size)
	events.Emit(s.bus, events.NewEventWithData(events.EventAssetStored, eventSource, "Image stored", relPath,
		map[string]interface{}{"path": relPath, "kind": kind, "size": asset.Size}))
	return asset, nil
}

// decodeConfig reads only the image header
func decodeConfig(mime string, data []byte) (image.Config, error) {
	reader := bytes.NewReader(data)
	switch mime {
	case "image/jpeg":
		return jpeg.DecodeConfig(reader)
	case "image/png":
		return png.DecodeConfig(reader)
	case "image/gif":
		return gif.DecodeConfig(reader)
	case "image/webp":
		return webp.DecodeConfig(reader)
	default:
		return image.Config{}, fmt.Errorf("unsupported content type %s", mime)
	}
}

func decodeImage(mime string, data []byte) (image.Image, error) {
	reader := bytes.NewReader(data)
	switch mime {
	case "image/jpeg":
		return jpeg.Decode(reader)
	case "image/png":
		return png.Decode(reader)
	case "image/gif":
		return gif.Decode(reader)
	case "image/webp":
		return webp.Decode(reader)
	default:
		return nil, fmt.Errorf("unsupported content type %s", mime)
	}
}

// write stores data through a temporary file so readers never see a
// partial image
func (s *assetServiceImpl) write(relPath string, data []byte) error {
	fullPath, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create asset directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write asset: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write asset: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("failed to set asset permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return fmt.Errorf("failed to move asset into place: %w", err)
	}
	return nil
}

// resolve maps a relative asset path to a file under the media root
func (s *assetServiceImpl) resolve(relPath string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(relPath))
	if clean == "/" || strings.Contains(relPath, "..") {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, relPath)
	}
	return filepath.Join(s.settings.RootDir, filepath.FromSlash(clean)), nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *assetServiceImpl) Remove(ctx context.Context, relPath string) error {
	fullPath, err := s.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to remove asset: %w", err)
	}

	s.logger.Debug("image removed", "path", relPath)
	events.Emit(s.bus, events.NewEventWithData(events.EventAssetRemoved, eventSource, "Image removed", relPath,
		map[string]interface{}{"path": relPath}))
	return nil
}

// URL returns the public URL of a stored file
func (s *assetServiceImpl) URL(relPath string) string {
	if relPath == "" {
		return ""
	}
	return s.settings.URLPrefix + "/" + strings.TrimPrefix(filepath.ToSlash(relPath), "/")
}

// EnsurePlaceholder writes a plain grey WebP image at relPath unless a file
// is already there. New accounts point at it as their profile picture.
func EnsurePlaceholder(rootDir, relPath string, size int) error {
	fullPath := filepath.Join(rootDir, filepath.FromSlash(relPath))
	if _, err := os.Stat(fullPath); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create placeholder directory: %w", err)
	}

	img := image.NewGray(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = color.Gray{Y: 0xc8}.Y
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Lossless: true}); err != nil {
		return fmt.Errorf("failed to encode placeholder: %w", err)
	}
	return os.WriteFile(fullPath, buf.Bytes(), 0o644)
}
