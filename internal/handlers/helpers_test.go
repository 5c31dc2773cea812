package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/benvon/smart-snippets/internal/apperror"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type envelope struct {
	Success   bool                  `json:"success"`
	Data      json.RawMessage       `json:"data"`
	Error     string                `json:"error"`
	Message   string                `json:"message"`
	Fields    []apperror.FieldError `json:"fields"`
	Timestamp string                `json:"timestamp"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected Content-Type application/json, got %q", ct)
	}
	var env envelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if _, err := time.Parse(time.RFC3339, env.Timestamp); err != nil {
		t.Errorf("Expected RFC3339 timestamp, got %q", env.Timestamp)
	}
	return env
}

func TestRespondJSON_Envelope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		data     any
		wantData string
	}{
		{"tags", http.StatusOK, []string{"loop", "python"}, `["loop","python"]`},
		{"created", http.StatusCreated, map[string]string{"title": "retry"}, `{"title":"retry"}`},
		{"nil data", http.StatusOK, nil, `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			respondJSON(w, tt.status, tt.data)

			if w.Code != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, w.Code)
			}
			env := decodeEnvelope(t, w)
			if !env.Success {
				t.Error("Expected success to be true")
			}
			if got := string(env.Data); got != tt.wantData {
				t.Errorf("Expected data %s, got %s", tt.wantData, got)
			}
		})
	}
}

func TestRespondAppError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantError   string
		wantFields  int
		wantMessage string
	}{
		{
			name:       "validation with fields",
			err:        apperror.ValidationFailed("title", "is required"),
			wantStatus: http.StatusBadRequest,
			wantError:  "Bad Request",
			wantFields: 1,
		},
		{
			name:       "not found",
			err:        fmt.Errorf("snippet: %w", apperror.ErrNotFound),
			wantStatus: http.StatusNotFound,
			wantError:  "Not Found",
		},
		{
			name:        "unknown error hides detail",
			err:         errors.New("pq: connection refused"),
			wantStatus:  http.StatusInternalServerError,
			wantError:   "Internal Server Error",
			wantMessage: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/snippets", nil)
			respondAppError(w, req, tt.err, zap.NewNop())

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			env := decodeEnvelope(t, w)
			if env.Success {
				t.Error("Expected success to be false")
			}
			if env.Error != tt.wantError {
				t.Errorf("Expected error %q, got %q", tt.wantError, env.Error)
			}
			if len(env.Fields) != tt.wantFields {
				t.Errorf("Expected %d fields, got %v", tt.wantFields, env.Fields)
			}
			if tt.wantMessage != "" && env.Message != tt.wantMessage {
				t.Errorf("Expected message %q, got %q", tt.wantMessage, env.Message)
			}
		})
	}
}

func TestPathID(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	tests := []struct {
		name   string
		raw    string
		wantOK bool
	}{
		{"uuid", id.String(), true},
		{"not a uuid", "snippet-1", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/v1/snippets/x", nil), map[string]string{"id": tt.raw})

			got, ok := pathID(w, req)
			if ok != tt.wantOK {
				t.Fatalf("Expected ok=%v, got %v", tt.wantOK, ok)
			}
			if ok && got != id {
				t.Errorf("Expected id %s, got %s", id, got)
			}
			if !ok {
				env := decodeEnvelope(t, w)
				if w.Code != http.StatusBadRequest || len(env.Fields) != 1 || env.Fields[0].Field != "id" {
					t.Errorf("Expected 400 with an id field error, got %d %+v", w.Code, env.Fields)
				}
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	type payload struct {
		Title string `json:"title"`
	}

	tests := []struct {
		name       string
		body       any
		limit      int64
		wantOK     bool
		wantStatus int
	}{
		{"valid", map[string]string{"title": "hello"}, 0, true, http.StatusOK},
		{"empty body", nil, 0, false, http.StatusBadRequest},
		{"unknown field", map[string]string{"owner": "x"}, 0, false, http.StatusBadRequest},
		{"too large", map[string]string{"title": strings.Repeat("a", 64)}, 16, false, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := httptest.NewRecorder()
			req := newTestRequest(http.MethodPost, "/api/v1/snippets", tt.body)
			if tt.limit > 0 {
				req.Body = http.MaxBytesReader(w, req.Body, tt.limit)
			}

			var dst payload
			ok := decodeJSON(w, req, &dst)
			if ok != tt.wantOK {
				t.Fatalf("Expected ok=%v, got %v", tt.wantOK, ok)
			}
			if !ok && w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if ok && dst.Title != "hello" {
				t.Errorf("Expected title hello, got %q", dst.Title)
			}
		})
	}
}

func TestRespondJSONError_TruncatesMessage(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	respondJSONError(w, http.StatusBadRequest, "Bad Request", strings.Repeat("x", 500))

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	msg, _ := body["message"].(string)
	if len(msg) > maxErrorMessageLength+3 {
		t.Errorf("Expected message truncated to %d, got %d", maxErrorMessageLength, len(msg))
	}
}

// Test helper to create a test request with body
func newTestRequest(method, path string, body any) *http.Request {
	var bodyReader *bytes.Reader
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(bodyBytes)
	} else {
		bodyReader = bytes.NewReader(nil)
	}
	return httptest.NewRequest(method, path, bodyReader)
}
