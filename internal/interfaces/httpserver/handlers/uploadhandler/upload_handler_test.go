package uploadhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"docchat-server/internal/domain/upload"
	"docchat-server/internal/infrastructure/auth"
)

type memoryStorage struct {
	mu          sync.Mutex
	objects     map[string][]byte
	noDirectURL bool
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: make(map[string][]byte)}
}

func (m *memoryStorage) Upload(_ context.Context, key string, body io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStorage) Download(_ context.Context, key string) (io.ReadCloser, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, "", errors.New("object not found")
	}
	return io.NopCloser(bytes.NewReader(data)), "application/octet-stream", nil
}

func (m *memoryStorage) URLFor(_ context.Context, key string) (string, error) {
	if m.noDirectURL {
		return "", nil
	}
	return "http://storage.local/" + key, nil
}

func (m *memoryStorage) Health(context.Context) error { return nil }

type mockFileRepository struct {
	mu        sync.Mutex
	created   []*upload.FileObject
	createErr error
}

func (m *mockFileRepository) Create(_ context.Context, obj *upload.FileObject) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, obj)
	return nil
}

func (m *mockFileRepository) FindByIDAndUserID(_ context.Context, id, userID string) (*upload.FileObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, obj := range m.created {
		if obj.ID == id && obj.UserID == userID {
			return obj, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockFileRepository) ListByUserID(context.Context, string) ([]*upload.FileObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.created, nil
}

func setupUploadRouter(t *testing.T, handler *UploadHandler, userID string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("auth_principal", &auth.Principal{ID: userID})
		}
		c.Next()
	})
	router.POST("/api/files/upload", handler.Upload)
	router.GET("/api/files/:id", handler.Serve)
	return router
}

func newHandler(repo upload.Repository, store *memoryStorage, maxBytes int64) *UploadHandler {
	service := upload.NewService(repo, store, "local", maxBytes, zerolog.Nop())
	return NewUploadHandler(service)
}

func multipartBody(t *testing.T, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, data := range files {
		part, err := writer.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func postUpload(router *gin.Engine, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/files/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestUploadSingleFile(t *testing.T) {
	repo := &mockFileRepository{}
	store := newMemoryStorage()
	router := setupUploadRouter(t, newHandler(repo, store, 1<<20), "user-1")

	body, contentType := multipartBody(t, map[string][]byte{
		"notes.txt": []byte("hello attachment"),
	})
	rec := postUpload(router, body, contentType)

	require.Equal(t, http.StatusOK, rec.Code)

	var stored upload.StoredFile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, "notes.txt", stored.Pathname)
	assert.Contains(t, stored.URL, "user-1/")
	assert.Contains(t, stored.URL, "/notes.txt")
	assert.Contains(t, stored.ContentType, "text/plain")

	require.Len(t, repo.created, 1)
	assert.Equal(t, "user-1", repo.created[0].UserID)
	assert.Equal(t, int64(len("hello attachment")), repo.created[0].Bytes)
}

func TestUploadMultipleFiles(t *testing.T) {
	repo := &mockFileRepository{}
	store := newMemoryStorage()
	router := setupUploadRouter(t, newHandler(repo, store, 1<<20), "user-1")

	body, contentType := multipartBody(t, map[string][]byte{
		"a.txt": []byte("first file"),
		"b.txt": []byte("second file"),
	})
	rec := postUpload(router, body, contentType)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Files, 2)
	assert.Empty(t, resp.Errors)
	assert.Len(t, repo.created, 2)
}

func TestUploadPartialFailureKeepsSuccesses(t *testing.T) {
	repo := &mockFileRepository{}
	store := newMemoryStorage()
	router := setupUploadRouter(t, newHandler(repo, store, 1<<20), "user-1")

	body, contentType := multipartBody(t, map[string][]byte{
		"good.txt":  []byte("real content"),
		"empty.txt": {},
	})
	rec := postUpload(router, body, contentType)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Files, 1)
	assert.Equal(t, "good.txt", resp.Files[0].Pathname)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "empty.txt", resp.Errors[0].Filename)
	assert.Equal(t, "file is empty", resp.Errors[0].Error)
}

func TestUploadFileTooLarge(t *testing.T) {
	repo := &mockFileRepository{}
	store := newMemoryStorage()
	router := setupUploadRouter(t, newHandler(repo, store, 8), "user-1")

	body, contentType := multipartBody(t, map[string][]byte{
		"big.txt": []byte("this payload is larger than eight bytes"),
	})
	rec := postUpload(router, body, contentType)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Files)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, fmt.Sprintf("file exceeds the %d byte limit", 8), resp.Errors[0].Error)
	assert.Empty(t, repo.created)
}

func TestUploadRepositoryFailureHidesDetail(t *testing.T) {
	repo := &mockFileRepository{createErr: errors.New("connection refused")}
	store := newMemoryStorage()
	router := setupUploadRouter(t, newHandler(repo, store, 1<<20), "user-1")

	body, contentType := multipartBody(t, map[string][]byte{
		"notes.txt": []byte("hello"),
	})
	rec := postUpload(router, body, contentType)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "upload failed", resp.Errors[0].Error)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestUploadNoFile(t *testing.T) {
	router := setupUploadRouter(t, newHandler(&mockFileRepository{}, newMemoryStorage(), 1<<20), "user-1")

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.Close())
	rec := postUpload(router, body, writer.FormDataContentType())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no file provided")
}

func TestUploadWithoutDirectURLServesViaFileRoute(t *testing.T) {
	repo := &mockFileRepository{}
	store := newMemoryStorage()
	store.noDirectURL = true
	handler := newHandler(repo, store, 1<<20)
	router := setupUploadRouter(t, handler, "user-1")

	content := []byte("plain text attachment")
	body, contentType := multipartBody(t, map[string][]byte{"notes.txt": content})
	rec := postUpload(router, body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	var stored upload.StoredFile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))

	// No base URL configured, so the upload answers with the file route.
	require.Len(t, repo.created, 1)
	assert.Equal(t, "/api/files/"+repo.created[0].ID, stored.URL)

	req := httptest.NewRequest(http.MethodGet, stored.URL, nil)
	serve := httptest.NewRecorder()
	router.ServeHTTP(serve, req)

	require.Equal(t, http.StatusOK, serve.Code)
	assert.Equal(t, content, serve.Body.Bytes())
	assert.Contains(t, serve.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, serve.Header().Get("Content-Disposition"), "notes.txt")
}

func TestServeOtherUsersFile(t *testing.T) {
	repo := &mockFileRepository{}
	store := newMemoryStorage()
	store.noDirectURL = true
	handler := newHandler(repo, store, 1<<20)

	owner := setupUploadRouter(t, handler, "user-1")
	body, contentType := multipartBody(t, map[string][]byte{"notes.txt": []byte("secret")})
	rec := postUpload(owner, body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, repo.created, 1)

	other := setupUploadRouter(t, handler, "user-2")
	req := httptest.NewRequest(http.MethodGet, "/api/files/"+repo.created[0].ID, nil)
	serve := httptest.NewRecorder()
	other.ServeHTTP(serve, req)

	assert.Equal(t, http.StatusNotFound, serve.Code)
}

func TestServeUnknownFile(t *testing.T) {
	router := setupUploadRouter(t, newHandler(&mockFileRepository{}, newMemoryStorage(), 1<<20), "user-1")

	req := httptest.NewRequest(http.MethodGet, "/api/files/file_missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadRequiresPrincipal(t *testing.T) {
	router := setupUploadRouter(t, newHandler(&mockFileRepository{}, newMemoryStorage(), 1<<20), "")

	body, contentType := multipartBody(t, map[string][]byte{
		"notes.txt": []byte("hello"),
	})
	rec := postUpload(router, body, contentType)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
