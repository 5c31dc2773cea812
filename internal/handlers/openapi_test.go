package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
)

func contains(s, sub string) bool {
	return strings.Contains(s, sub)
}

func TestOpenAPIHandler(t *testing.T) {
	t.Parallel()

	r := mux.NewRouter()
	NewOpenAPIHandler().RegisterRoutes(r)

	t.Run("yaml", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/openapi.yaml", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/x-yaml" {
			t.Errorf("Expected YAML content type, got %q", ct)
		}
		if !contains(w.Body.String(), "openapi: 3.0.3") {
			t.Error("Expected OpenAPI document")
		}
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/openapi.json", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}

		var doc map[string]any
		if err := json.NewDecoder(w.Body).Decode(&doc); err != nil {
			t.Fatalf("Failed to decode JSON spec: %v", err)
		}
		paths, ok := doc["paths"].(map[string]any)
		if !ok {
			t.Fatal("Expected paths object")
		}
		for _, p := range []string{"/api/v1/snippets", "/api/v1/snippets/{id}", "/api/v1/snippets/tags/preview"} {
			if _, ok := paths[p]; !ok {
				t.Errorf("Expected path %s in spec", p)
			}
		}
	})
}
