package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"audio-archiver/codec"
	"audio-archiver/dto"
	"audio-archiver/service"
)

func testEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	adapter := codec.NewAdapter("/nonexistent/ffmpeg", time.Second)
	catalog, err := service.NewCatalog(t.TempDir(), adapter)
	require.NoError(t, err)

	r := gin.New()
	NewHandler(catalog, adapter).Register(r)
	return r
}

func multipartUpload(t *testing.T, filename, content, metadata string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	if metadata != "" {
		require.NoError(t, w.WriteField("metadata", metadata))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func doUpload(t *testing.T, r *gin.Engine, filename, content, metadata string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartUpload(t, filename, content, metadata)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestUploadStoresFileAndReturns201(t *testing.T) {
	r := testEngine(t)

	rec := doUpload(t, r, "seg.opus", "audio bytes", `{"sample_rate":16000}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp dto.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	require.Equal(t, "seg.opus", resp.Filename)
	require.EqualValues(t, len("audio bytes"), resp.SizeBytes)
	require.True(t, resp.MetadataSaved)
}

func TestUploadWithoutFileIs400(t *testing.T) {
	r := testEngine(t)
	rec := doUpload(t, r, "", "", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDuplicateUploadGetsSuffixedName(t *testing.T) {
	r := testEngine(t)

	first := doUpload(t, r, "seg.opus", "one", "")
	second := doUpload(t, r, "seg.opus", "two", "")
	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)

	var resp1, resp2 dto.UploadResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &resp1))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp2))
	require.Equal(t, "seg.opus", resp1.Filename)
	require.Equal(t, "seg_1.opus", resp2.Filename)

	// Both payloads remain intact.
	for name, want := range map[string]string{"seg.opus": "one", "seg_1.opus": "two"} {
		req := httptest.NewRequest(http.MethodGet, "/files/"+name, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		data, err := io.ReadAll(rec.Body)
		require.NoError(t, err)
		require.Equal(t, want, string(data))
	}
}

func TestHealth(t *testing.T) {
	r := testEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)
	require.False(t, resp.CodecAvailable)
	require.Equal(t, 0, resp.FileCount)
}

func TestListFiles(t *testing.T) {
	r := testEngine(t)
	doUpload(t, r, "a.opus", "a", `{"sample_rate":16000}`)
	doUpload(t, r, "b.wav", "bb", "")

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.FileListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	require.Equal(t, "a.opus", resp.Files[0].Filename)
	require.NotEmpty(t, resp.Files[0].Metadata)
}

func TestDownloadMissingFileIs404(t *testing.T) {
	r := testEngine(t)
	req := httptest.NewRequest(http.MethodGet, "/files/nope.opus", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDecompressMissingFileIs404(t *testing.T) {
	r := testEngine(t)
	req := httptest.NewRequest(http.MethodPost, "/decompress/nope.opus", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDecompressWithoutDecoderIs500(t *testing.T) {
	r := testEngine(t)
	doUpload(t, r, "seg.opus", "audio", "")

	req := httptest.NewRequest(http.MethodPost, "/decompress/seg.opus", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
