package handler

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barterhub/internal/infrastructure/storage"
	"barterhub/internal/usecase"
)

var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func newMediaAPI(t *testing.T) *apiFixture {
	f := newAPIFixture(t)
	local, err := storage.NewLocalBackend(t.TempDir(), "http://localhost:8080/uploads")
	require.NoError(t, err)
	factory := storage.NewFactory(storage.BackendLocal, storage.Rules{})
	factory.Register(local)

	h := NewMediaHandler(usecase.NewMediaUseCase(f.media, f.listings, factory, 1<<20))
	g := f.e.Group("/v1/media", f.asUser)
	g.POST("", h.UploadMedia)
	g.GET("", h.ListMyMedia)
	g.GET("/:id", h.GetMedia)
	g.GET("/:id/content", h.GetMediaContent)
	g.DELETE("/:id", h.DeleteMedia)
	return f
}

func uploadRequest(t *testing.T, userID, name string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("region", "lagos"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/media", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set(testUserHeader, userID)
	return req
}

func TestMediaHandler_UploadStreamDelete(t *testing.T) {
	f := newMediaAPI(t)

	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, uploadRequest(t, "u1", "avatar.png", pngBytes))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var env envelope
	decode(t, rec.Body.Bytes(), &env)
	var media struct {
		ID       string `json:"id"`
		MimeType string `json:"mime_type"`
		Region   string `json:"region"`
	}
	decode(t, env.Data, &media)
	assert.Equal(t, "image/png", media.MimeType)
	assert.Equal(t, "LAGOS", media.Region)

	req := httptest.NewRequest(http.MethodGet, "/v1/media/"+media.ID+"/content", nil)
	req.Header.Set(testUserHeader, "u2")
	rec = httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, pngBytes, body)

	recDel, _ := f.do(t, http.MethodDelete, "/v1/media/"+media.ID, "u2", nil)
	assert.Equal(t, http.StatusForbidden, recDel.Code)

	recDel, _ = f.do(t, http.MethodDelete, "/v1/media/"+media.ID, "admin", nil)
	assert.Equal(t, http.StatusOK, recDel.Code)

	recGet, _ := f.do(t, http.MethodGet, "/v1/media/"+media.ID, "u1", nil)
	assert.Equal(t, http.StatusNotFound, recGet.Code)
}

func TestMediaHandler_RejectsUnsupportedType(t *testing.T) {
	f := newMediaAPI(t)

	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, uploadRequest(t, "u1", "notes.txt", []byte("just some plain text")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMediaHandler_MissingFile(t *testing.T) {
	f := newMediaAPI(t)

	rec, env := f.do(t, http.MethodPost, "/v1/media", "u1", map[string]string{"region": "lagos"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Missing or invalid file", env.Error.Message)
}

func TestMediaHandler_ListMine(t *testing.T) {
	f := newMediaAPI(t)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		f.e.ServeHTTP(rec, uploadRequest(t, "u1", "a.png", pngBytes))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	_, env := f.do(t, http.MethodGet, "/v1/media", "u1", nil)
	var page struct {
		Total int64 `json:"total"`
	}
	decode(t, env.Data, &page)
	assert.EqualValues(t, 2, page.Total)

	_, env = f.do(t, http.MethodGet, "/v1/media", "u2", nil)
	decode(t, env.Data, &page)
	assert.EqualValues(t, 0, page.Total)
}
