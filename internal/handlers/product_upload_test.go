package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"oiko/internal/images"
	"oiko/internal/models"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func multipartUpload(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, "art.bin")
	if err != nil {
		t.Fatalf("CreateFormFile returned error: %v", err)
	}
	_, _ = part.Write(data)
	_ = writer.Close()
	return body, writer.FormDataContentType()
}

func (e *testEnv) upload(t *testing.T, token, field string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartUpload(t, field, data)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestUploadImage_StoresPNG(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "artist@oiko.test", models.RoleUser, 0)

	w := env.upload(t, token, uploadField, pngHeader)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data images.Uploaded `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !images.ValidPublicID(resp.Data.PublicID) || !strings.HasSuffix(resp.Data.PublicID, ".png") {
		t.Fatalf("unexpected public id %q", resp.Data.PublicID)
	}
	if !strings.HasSuffix(resp.Data.URL, resp.Data.PublicID) {
		t.Fatalf("url %q does not end with public id", resp.Data.URL)
	}
}

func TestUploadImage_RejectsNonImage(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "artist@oiko.test", models.RoleUser, 0)

	w := env.upload(t, token, uploadField, []byte("plain text pretending to be art"))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), images.ErrNotImage.Error()) {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestUploadImage_RequiresImageField(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "artist@oiko.test", models.RoleUser, 0)

	w := env.upload(t, token, "file", pngHeader)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), errImageRequired.Error()) {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestUploadImage_RequiresMultipart(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "artist@oiko.test", models.RoleUser, 0)

	w := env.do(t, http.MethodPost, "/api/upload", map[string]string{"image": "x"}, token)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", w.Code)
	}
}

func TestUploadImage_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	body, contentType := multipartUpload(t, uploadField, pngHeader)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestDeleteImage(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "artist@oiko.test", models.RoleUser, 0)

	if w := env.do(t, http.MethodDelete, "/api/upload/not-a-real-id", nil, token); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid id, got %d", w.Code)
	}

	publicID := uuid.NewString() + ".webp"
	if w := env.do(t, http.MethodDelete, "/api/upload/"+publicID, nil, token); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	deleted := env.host.Deleted()
	if len(deleted) != 1 || deleted[0] != publicID {
		t.Fatalf("expected %s to be deleted, got %v", publicID, deleted)
	}
}
