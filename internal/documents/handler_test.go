package documents_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"careerpilot-backend/internal/documents"
	"careerpilot-backend/internal/shared/server/middleware"
	"careerpilot-backend/internal/shared/storage/object/local"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := &documents.Service{Store: local.New(t.TempDir()), Repo: documents.NewMemoryRepo()}
	r := gin.New()
	r.Use(middleware.Auth("dev"))
	documents.NewHandler(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func multipartBody(t *testing.T, name, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	fw, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func serve(r http.Handler, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, body)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("X-Guest-Id", "test-guest")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestDocumentsUploadGetCurrentAndDelete(t *testing.T) {
	r := newRouter(t)

	body, ct := multipartBody(t, "hello.txt", "hello world")
	resp := serve(r, http.MethodPost, "/api/v1/documents", body, ct)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var created documents.View
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	require.NotEmpty(t, created.DocumentID)
	require.Equal(t, "hello.txt", created.FileName)
	require.False(t, created.HasText)

	resp = serve(r, http.MethodGet, "/api/v1/documents/current", nil, "")
	require.Equal(t, http.StatusOK, resp.Code)
	var current documents.View
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &current))
	require.Equal(t, created.DocumentID, current.DocumentID)

	resp = serve(r, http.MethodGet, "/api/v1/documents/"+created.DocumentID, nil, "")
	require.Equal(t, http.StatusOK, resp.Code)

	resp = serve(r, http.MethodDelete, "/api/v1/documents/"+created.DocumentID, nil, "")
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = serve(r, http.MethodGet, "/api/v1/documents/"+created.DocumentID, nil, "")
	require.Equal(t, http.StatusNotFound, resp.Code)
	resp = serve(r, http.MethodGet, "/api/v1/documents/current", nil, "")
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestResumeParseRejectsNonPDF(t *testing.T) {
	r := newRouter(t)
	body, ct := multipartBody(t, "resume.txt", "not a pdf")
	resp := serve(r, http.MethodPost, "/api/v1/resumes/parse", body, ct)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	require.Equal(t, "Only PDF files are supported", payload.Error.Message)
}

func TestCreateFromS3Validation(t *testing.T) {
	r := newRouter(t)
	cases := map[string]string{
		`{"originalFileName":"cv.pdf","contentType":"application/pdf","sizeBytes":1}`:             "s3Key is required",
		`{"s3Key":"k","contentType":"application/pdf","sizeBytes":1}`:                             "originalFileName is required",
		`{"s3Key":"k","originalFileName":"cv.pdf","contentType":"application/pdf","sizeBytes":0}`: "sizeBytes must be positive",
		`{"s3Key":"k","originalFileName":"cv.pdf","contentType":"application/pdf","sizeBytes":99999999}`: "sizeBytes exceeds the 10MB limit",
	}
	for payload, want := range cases {
		resp := serve(r, http.MethodPost, "/api/v1/documents/from-s3", bytes.NewBufferString(payload), "application/json")
		require.Equal(t, http.StatusBadRequest, resp.Code, payload)
		require.True(t, strings.Contains(resp.Body.String(), want), "%s: %s", payload, resp.Body.String())
	}

	resp := serve(r, http.MethodPost, "/api/v1/documents/from-s3",
		bytes.NewBufferString(`{"s3Key":"k","originalFileName":"cv.pdf","contentType":"application/pdf","sizeBytes":10}`), "application/json")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, resp.Body.String(), "direct uploads are not enabled")
}

func TestListRequiresLogin(t *testing.T) {
	resp := serve(newRouter(t), http.MethodGet, "/api/v1/documents", nil, "")
	require.Equal(t, http.StatusUnauthorized, resp.Code)
	require.Contains(t, resp.Body.String(), "login_required")
}
