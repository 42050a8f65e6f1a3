package uploadhandler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"docchat-server/internal/domain/upload"
	"docchat-server/internal/infrastructure/auth"
	"docchat-server/internal/infrastructure/logger"
	"docchat-server/internal/infrastructure/metrics"
	"docchat-server/internal/utils/platformerrors"
)

const maxConcurrentUploads = 4

// UploadFailure reports one attachment that could not be stored.
type UploadFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// BatchResponse is returned when more than one file is posted. Successes are
// kept even when siblings fail.
type BatchResponse struct {
	Files  []upload.StoredFile `json:"files"`
	Errors []UploadFailure     `json:"errors,omitempty"`
}

// UploadHandler accepts multipart attachment uploads.
type UploadHandler struct {
	service *upload.Service
}

func NewUploadHandler(service *upload.Service) *UploadHandler {
	return &UploadHandler{service: service}
}

// Upload handles POST /api/files/upload. Files are stored concurrently; one
// failed file does not discard its siblings. A single-file request answers
// with the bare stored object for the browser's attachment picker.
func (h *UploadHandler) Upload(c *gin.Context) {
	log := logger.GetLogger()

	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		platformerrors.WriteUnauthorized(c, "unauthorized")
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		platformerrors.WriteValidationError(c, "invalid multipart form")
		return
	}

	files := form.File["file"]
	if len(files) == 0 {
		files = form.File["files"]
	}
	if len(files) == 0 {
		platformerrors.WriteValidationError(c, "no file provided")
		return
	}

	results := make([]*upload.StoredFile, len(files))
	failures := make([]*UploadFailure, len(files))

	var mu sync.Mutex
	group, ctx := errgroup.WithContext(c.Request.Context())
	group.SetLimit(maxConcurrentUploads)

	for i, header := range files {
		i, header := i, header
		group.Go(func() error {
			data, err := readFile(header)
			if err == nil {
				var stored *upload.StoredFile
				stored, err = h.service.Store(ctx, principal.ID, header.Filename, data)
				if err == nil {
					mu.Lock()
					results[i] = stored
					mu.Unlock()
					metrics.RecordUpload("ok", header.Size)
					return nil
				}
			}

			log.Warn().Err(err).Str("filename", header.Filename).Msg("attachment upload failed")
			metrics.RecordUpload("error", header.Size)
			mu.Lock()
			failures[i] = &UploadFailure{Filename: header.Filename, Error: failureMessage(err)}
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	stored := make([]upload.StoredFile, 0, len(files))
	for _, r := range results {
		if r != nil {
			stored = append(stored, *r)
		}
	}
	failed := make([]UploadFailure, 0, len(files))
	for _, f := range failures {
		if f != nil {
			failed = append(failed, *f)
		}
	}

	if len(stored) == 0 {
		c.JSON(http.StatusBadRequest, BatchResponse{Files: stored, Errors: failed})
		return
	}

	if len(files) == 1 {
		c.JSON(http.StatusOK, stored[0])
		return
	}

	c.JSON(http.StatusOK, BatchResponse{Files: stored, Errors: failed})
}

// Serve handles GET /api/files/:id. It streams the caller's stored
// attachment; files owned by someone else answer 404 like absent ones.
func (h *UploadHandler) Serve(c *gin.Context) {
	log := logger.GetLogger()

	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		platformerrors.WriteUnauthorized(c, "unauthorized")
		return
	}

	body, record, err := h.service.Open(c.Request.Context(), principal.ID, c.Param("id"))
	if err != nil {
		platformerrors.WriteError(c, err, log)
		return
	}
	defer body.Close()

	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf("inline; filename=%q", record.Pathname),
	}
	c.DataFromReader(http.StatusOK, record.Bytes, record.ContentType, body, headers)
}

func readFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

// failureMessage keeps validation detail but hides internals.
func failureMessage(err error) string {
	if platformErr := platformerrors.GetPlatformError(err); platformErr != nil {
		if platformErr.Type == platformerrors.ErrorTypeValidation {
			return platformErr.Message
		}
	}
	return "upload failed"
}
