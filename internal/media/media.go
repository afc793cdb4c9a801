// Package media is the gallery's Media Store client: it puts image blobs
// into object storage under a folder, optionally transforming them first,
// and reports the public URL and pixel dimensions of what was stored.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"github.com/artfolio/gallery/internal/storage"
)

// Folders under the media root.
const (
	OriginalsFolder  = "originals"
	ThumbnailsFolder = "thumbnails"
)

// ErrUnsupportedImage is returned when the uploaded bytes are not a decodable image.
var ErrUnsupportedImage = errors.New("unsupported image")

// Crop selects how a transformation fits the image into the target box.
type Crop string

// CropFill scales the image to cover the box and center-crops the overflow.
const CropFill Crop = "fill"

// Transform describes an optional resize applied before upload.
type Transform struct {
	Width  int
	Height int
	Crop   Crop
}

// Asset describes a stored blob.
type Asset struct {
	Key         string
	URL         string
	Width       int
	Height      int
	ContentType string
}

// Store uploads and deletes images through an object storage backend.
type Store struct {
	storage storage.Storage
	root    string
}

// NewStore creates a Store that keeps every blob below root.
func NewStore(s storage.Storage, root string) *Store {
	return &Store{storage: s, root: strings.Trim(root, "/")}
}

// Folder returns the fully qualified folder prefix for name.
func (s *Store) Folder(name string) string {
	return path.Join(s.root, name)
}

// Upload stores data under folder. With a nil transform the bytes are stored
// unmodified; otherwise the decoded image is resized first and re-encoded.
func (s *Store) Upload(ctx context.Context, folder string, data []byte, transform *Transform) (*Asset, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}

	asset := &Asset{
		Key:         path.Join(s.Folder(folder), uuid.NewString()),
		Width:       cfg.Width,
		Height:      cfg.Height,
		ContentType: "image/" + format,
	}
	body := data

	if transform != nil {
		thumb, contentType, err := applyTransform(data, format, *transform)
		if err != nil {
			return nil, err
		}
		bounds := thumb.img.Bounds()
		asset.Width, asset.Height = bounds.Dx(), bounds.Dy()
		asset.ContentType = contentType
		body = thumb.encoded
	}

	if err := s.storage.Upload(ctx, asset.Key, bytes.NewReader(body), int64(len(body)), asset.ContentType); err != nil {
		return nil, fmt.Errorf("upload %s: %w", folder, err)
	}
	asset.URL = s.storage.PublicURL(asset.Key)
	return asset, nil
}

// Delete removes the blob stored under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.storage.Delete(ctx, key)
}

// KeyFromURL derives the blob key of a stored URL: the last path segment
// without its extension, qualified under folder.
func (s *Store) KeyFromURL(rawURL, folder string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return "", fmt.Errorf("url %q has no object name", rawURL)
	}
	name = strings.TrimSuffix(name, path.Ext(name))
	return path.Join(s.Folder(folder), name), nil
}

type transformed struct {
	img     image.Image
	encoded []byte
}

func applyTransform(data []byte, format string, t Transform) (*transformed, string, error) {
	if t.Width <= 0 || t.Height <= 0 {
		return nil, "", fmt.Errorf("invalid transform size %dx%d", t.Width, t.Height)
	}
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	var img image.Image
	switch t.Crop {
	case CropFill, "":
		img = imaging.Fill(src, t.Width, t.Height, imaging.Center, imaging.Lanczos)
	default:
		return nil, "", fmt.Errorf("unknown crop mode %q", t.Crop)
	}

	// imaging cannot encode webp; those thumbnails become JPEG.
	out, err := imaging.FormatFromExtension(format)
	if err != nil {
		out, format = imaging.JPEG, "jpeg"
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, out, imaging.JPEGQuality(85)); err != nil {
		return nil, "", fmt.Errorf("encode thumbnail: %w", err)
	}
	return &transformed{img: img, encoded: buf.Bytes()}, "image/" + format, nil
}
