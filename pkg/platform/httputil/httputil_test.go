package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "diagflow/pkg/domain-errors"
	"diagflow/pkg/platform/sentinel"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestWriteError(t *testing.T) {
	t.Run("internal error omits message", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInternal, "db failed"))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
		}
		body := decode(t, w)
		if body["error"] != "internal_error" {
			t.Fatalf("expected error code internal_error, got %q", body["error"])
		}
		if _, ok := body["msg"]; ok {
			t.Fatalf("expected msg to be omitted for internal errors")
		}
		if body["success"] != false {
			t.Fatalf("expected success=false")
		}
	})

	t.Run("bad request includes message", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid input"))

		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
		body := decode(t, w)
		if body["error"] != "bad_request" {
			t.Fatalf("expected error code bad_request, got %q", body["error"])
		}
		if body["msg"] != "invalid input" {
			t.Fatalf("expected msg to be returned for bad request, got %q", body["msg"])
		}
	})

	t.Run("sentinels map to statuses", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteError(w, fmt.Errorf("cart: %w", sentinel.ErrNotFound))
		if w.Code != http.StatusNotFound {
			t.Fatalf("expected status %d, got %d", http.StatusNotFound, w.Code)
		}

		w = httptest.NewRecorder()
		WriteError(w, fmt.Errorf("user exists: %w", sentinel.ErrInvalidState))
		if w.Code != http.StatusConflict {
			t.Fatalf("expected status %d, got %d", http.StatusConflict, w.Code)
		}
	})
}

func TestWriteData(t *testing.T) {
	w := httptest.NewRecorder()
	WriteData(w, http.StatusCreated, "ok", map[string]string{"guid": "g1"})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
	body := decode(t, w)
	if body["success"] != true || body["msg"] != "ok" {
		t.Fatalf("unexpected envelope %v", body)
	}
	if data, _ := body["data"].(map[string]any); data["guid"] != "g1" {
		t.Fatalf("unexpected data %v", body["data"])
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct{ A int }
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"A":1}`))
	if err := DecodeJSON(r, &dst); err != nil || dst.A != 1 {
		t.Fatalf("decode: %v %v", err, dst)
	}
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	if err := DecodeJSON(r, &dst); !dErrors.HasCode(err, dErrors.CodeInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
