package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/artfolio/gallery/internal/media"
	"github.com/artfolio/gallery/internal/photo"
	"github.com/artfolio/gallery/internal/server"
	"github.com/artfolio/gallery/internal/storage"
)

type memRepository struct {
	mu     sync.Mutex
	seq    int
	photos map[string]photo.Photo
}

func (r *memRepository) Create(_ context.Context, p *photo.Photo) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	p.ID = fmt.Sprintf("p%d", r.seq)
	p.CreatedAt = time.Unix(int64(r.seq), 0)
	r.photos[p.ID] = *p
	return nil
}

func (r *memRepository) List(_ context.Context) ([]photo.Photo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]photo.Photo, 0, len(r.photos))
	for _, p := range r.photos {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memRepository) GetByID(_ context.Context, id string) (*photo.Photo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.photos[id]
	if !ok {
		return nil, photo.ErrNotFound
	}
	return &p, nil
}

func (r *memRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.photos[id]; !ok {
		return photo.ErrNotFound
	}
	delete(r.photos, id)
	return nil
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memStorage) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return storage.ErrNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *memStorage) PublicURL(key string) string {
	return "http://media.test/" + key
}

func (m *memStorage) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type testServer struct {
	*httptest.Server
	blobs *memStorage
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	blobs := &memStorage{objects: make(map[string][]byte)}
	repo := &memRepository{photos: make(map[string]photo.Photo)}
	svc := photo.NewService(repo, media.NewStore(blobs, "gallery"), nil, nil,
		photo.Options{ThumbnailSize: 300}, zap.NewNop())
	srv := httptest.NewServer(server.NewRouter(server.Deps{
		Photos: photo.NewHandler(svc, 10<<20, zap.NewNop()),
		Log:    zap.NewNop(),
	}))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, blobs: blobs}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type photoView struct {
	ID        string `json:"id"`
	Thumbnail string `json:"thumbnail"`
	Fullsize  string `json:"fullsize"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type uploadResult struct {
	Success bool        `json:"success"`
	Photos  []photoView `json:"photos"`
	Photo   *photoView  `json:"photo"`
	Error   string      `json:"error"`
}

func (s *testServer) upload(t *testing.T, files ...[]byte) (int, uploadResult) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for i, data := range files {
		fw, err := mw.CreateFormFile("files", fmt.Sprintf("photo-%d.png", i))
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	resp, err := http.Post(s.URL+"/api/upload", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()

	var res uploadResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return resp.StatusCode, res
}

func (s *testServer) list(t *testing.T) []photoView {
	t.Helper()
	resp, err := http.Get(s.URL + "/api/photos")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res struct {
		Photos []photoView `json:"photos"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	require.NotNil(t, res.Photos)
	return res.Photos
}

func (s *testServer) delete(t *testing.T, id string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, s.URL+"/api/photos/"+id, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func ids(views []photoView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.ID)
	}
	return out
}

func TestGallery_UploadListDelete(t *testing.T) {
	s := newTestServer(t)

	require.Empty(t, s.list(t))

	status, res := s.upload(t, pngBytes(t, 100, 100))
	require.Equal(t, http.StatusOK, status)
	require.True(t, res.Success)
	require.NotNil(t, res.Photo)
	require.Equal(t, 100, res.Photo.Width)
	require.Equal(t, 100, res.Photo.Height)
	require.True(t, strings.HasPrefix(res.Photo.Fullsize, "http://media.test/gallery/originals/"))
	require.True(t, strings.HasPrefix(res.Photo.Thumbnail, "http://media.test/gallery/thumbnails/"))
	require.Equal(t, 2, s.blobs.len())

	require.Contains(t, ids(s.list(t)), res.Photo.ID)

	require.Equal(t, http.StatusOK, s.delete(t, res.Photo.ID))
	require.NotContains(t, ids(s.list(t)), res.Photo.ID)
	require.Zero(t, s.blobs.len())

	require.Equal(t, http.StatusNotFound, s.delete(t, res.Photo.ID))
}

func TestGallery_MultipleFiles(t *testing.T) {
	s := newTestServer(t)

	_, first := s.upload(t, pngBytes(t, 40, 30))
	require.True(t, first.Success)
	before := len(s.list(t))

	status, res := s.upload(t, pngBytes(t, 10, 20), pngBytes(t, 30, 10), pngBytes(t, 50, 50))
	require.Equal(t, http.StatusOK, status)
	require.Len(t, res.Photos, 3)
	require.Nil(t, res.Photo)
	require.Equal(t, 10, res.Photos[0].Width)
	require.Equal(t, 30, res.Photos[1].Width)
	require.Equal(t, 50, res.Photos[2].Width)

	require.Len(t, s.list(t), before+3)
}

func TestGallery_Errors(t *testing.T) {
	s := newTestServer(t)

	status, res := s.upload(t)
	require.Equal(t, http.StatusBadRequest, status)
	require.False(t, res.Success)
	require.Equal(t, "No file uploaded", res.Error)

	status, res = s.upload(t, []byte("not an image"))
	require.Equal(t, http.StatusInternalServerError, status)
	require.Equal(t, "Failed to upload file", res.Error)
	require.Empty(t, s.list(t))
	require.Zero(t, s.blobs.len())

	require.Equal(t, http.StatusNotFound, s.delete(t, "does-not-exist"))
}

func TestRouter_HealthAndUI(t *testing.T) {
	s := newTestServer(t)

	resp, err := http.Get(s.URL + "/health")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"ok"}`, string(body))

	resp, err = http.Get(s.URL + "/")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "gallery.js")
}
