package photo

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/artfolio/gallery/internal/response"
)

// Multipart field names. "file" is the single-file field older clients send.
const (
	filesField      = "files"
	legacyFileField = "file"
)

// Multipart parts above this size spill to temporary files.
const maxFormMemory = 32 << 20

// Fixed client-facing messages.
const (
	msgNoFile       = "No file uploaded"
	msgTooLarge     = "Upload too large"
	msgUploadFailed = "Failed to upload file"
	msgListFailed   = "Failed to get photos"
	msgNotFound     = "Photo not found"
	msgDeleteFailed = "Failed to delete photo"
)

// Handler holds HTTP handlers for photo endpoints.
type Handler struct {
	svc            *Service
	maxUploadBytes int64
	log            *zap.Logger
}

// NewHandler creates a new photo Handler.
func NewHandler(svc *Service, maxUploadBytes int64, log *zap.Logger) *Handler {
	return &Handler{svc: svc, maxUploadBytes: maxUploadBytes, log: log}
}

type listResponse struct {
	Photos []View `json:"photos"`
}

type uploadResponse struct {
	Success bool   `json:"success" example:"true"`
	Photos  []View `json:"photos"`
	// Photo is set when exactly one file was uploaded.
	Photo *View `json:"photo,omitempty"`
}

type deleteResponse struct {
	Success bool `json:"success" example:"true"`
}

// List godoc
//
//	@Summary		List photos
//	@Description	Returns every photo, newest first. The list is empty when nothing has been uploaded.
//	@Tags			photos
//	@Produce		json
//	@Success		200	{object}	listResponse
//	@Failure		500	{object}	response.ErrorBody
//	@Router			/photos [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.List(r.Context())
	if err != nil {
		h.logError(r, "list photos", err)
		response.InternalError(w, msgListFailed)
		return
	}
	response.OK(w, listResponse{Photos: views})
}

// Upload godoc
//
//	@Summary		Upload photos
//	@Description	Stores each file as an original plus a square thumbnail and records its dimensions. Files are processed concurrently; any failure fails the whole request.
//	@Tags			photos
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			files	formData	file	true	"One or more image files"
//	@Success		200		{object}	uploadResponse
//	@Failure		400		{object}	response.ErrorBody
//	@Failure		500		{object}	response.ErrorBody
//	@Router			/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.BadRequest(w, msgTooLarge)
			return
		}
		response.BadRequest(w, msgNoFile)
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	files, err := readFiles(r.MultipartForm)
	if err != nil {
		h.logError(r, "read upload", err)
		response.InternalError(w, msgUploadFailed)
		return
	}

	photos, err := h.svc.Upload(r.Context(), files)
	if errors.Is(err, ErrNoFiles) {
		response.BadRequest(w, msgNoFile)
		return
	}
	if err != nil {
		h.logError(r, "upload photos", err)
		response.InternalError(w, msgUploadFailed)
		return
	}

	res := uploadResponse{Success: true, Photos: make([]View, 0, len(photos))}
	for i := range photos {
		res.Photos = append(res.Photos, photos[i].View())
	}
	if len(res.Photos) == 1 {
		res.Photo = &res.Photos[0]
	}
	response.OK(w, res)
}

// Delete godoc
//
//	@Summary		Delete photo
//	@Description	Removes the original and thumbnail blobs, then the record. Blob removal failures do not prevent the record from being deleted.
//	@Tags			photos
//	@Produce		json
//	@Param			id	path		string	true	"Photo ID"
//	@Success		200	{object}	deleteResponse
//	@Failure		404	{object}	response.ErrorBody
//	@Failure		500	{object}	response.ErrorBody
//	@Router			/photos/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.svc.Delete(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		response.NotFound(w, msgNotFound)
		return
	}
	if err != nil {
		h.logError(r, "delete photo", err)
		response.InternalError(w, msgDeleteFailed)
		return
	}
	response.OK(w, deleteResponse{Success: true})
}

func (h *Handler) logError(r *http.Request, msg string, err error) {
	h.log.Error(msg,
		zap.String("request_id", chimw.GetReqID(r.Context())),
		zap.Error(err),
	)
}

// readFiles collects the uploaded parts, skipping the empty part browsers
// send when no file was chosen.
func readFiles(form *multipart.Form) ([]File, error) {
	headers := form.File[filesField]
	if len(headers) == 0 {
		headers = form.File[legacyFileField]
	}
	files := make([]File, 0, len(headers))
	for _, fh := range headers {
		if fh.Filename == "" && fh.Size == 0 {
			continue
		}
		data, err := readPart(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, File{Name: fh.Filename, Data: data})
	}
	return files, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", fh.Filename, err)
	}
	return data, nil
}
