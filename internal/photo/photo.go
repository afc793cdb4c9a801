// Package photo implements the gallery's upload, list and delete workflow.
package photo

import (
	"context"
	"errors"
	"time"
)

// Photo is one persisted image pair: the original and its thumbnail.
type Photo struct {
	ID           string
	OriginalURL  string
	ThumbnailURL string
	OriginalKey  string
	ThumbnailKey string
	Width        int
	Height       int
	CreatedAt    time.Time
}

// View is the display shape returned to the gallery page.
type View struct {
	ID        string `json:"id"        example:"6d1f3c0e-6a2b-4a7e-9a52-2f0b1c5d7e11"`
	Thumbnail string `json:"thumbnail" example:"http://localhost:9000/gallery/gallery/thumbnails/1b2c"`
	Fullsize  string `json:"fullsize"  example:"http://localhost:9000/gallery/gallery/originals/9f8e"`
	Width     int    `json:"width"     example:"1920"`
	Height    int    `json:"height"    example:"1080"`
}

// View maps the record into its display shape.
func (p *Photo) View() View {
	return View{
		ID:        p.ID,
		Thumbnail: p.ThumbnailURL,
		Fullsize:  p.OriginalURL,
		Width:     p.Width,
		Height:    p.Height,
	}
}

// ErrNotFound is returned when a photo does not exist.
var ErrNotFound = errors.New("photo not found")

// ErrNoFiles is returned when an upload carries no file parts.
var ErrNoFiles = errors.New("no file uploaded")

//go:generate mockgen -destination=mocks/mock_photo.go -package=mocks . Repository,MediaStore,ListCache,EventPublisher

// Repository is the Metadata Store client.
type Repository interface {
	// Create persists p, filling in ID and CreatedAt.
	Create(ctx context.Context, p *Photo) error
	// List returns every photo, newest first.
	List(ctx context.Context) ([]Photo, error)
	// GetByID returns ErrNotFound for unknown or malformed ids.
	GetByID(ctx context.Context, id string) (*Photo, error)
	// Delete returns ErrNotFound when nothing was removed.
	Delete(ctx context.Context, id string) error
}
