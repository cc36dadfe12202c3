package httputil

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetch_Server(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept = %q, want application/json", r.Header.Get("Accept"))
		}
		w.Write([]byte(`{"hrs": []}`))
	}))
	defer srv.Close()

	body, err := Fetch(context.Background(), srv.Client(), srv.URL, 1024)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(body) != `{"hrs": []}` {
		t.Errorf("body = %q", body)
	}
}

func TestFetch_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(m *MockHTTPClient)
		max     int64
		wantErr string
	}{
		{"status", func(m *MockHTTPClient) { m.AddResponse(http.StatusNotFound, "nope") }, 1024, "unexpected status 404"},
		{"transport", func(m *MockHTTPClient) { m.AddErrorResponse(errors.New("connection refused")) }, 1024, "connection refused"},
		{"too large", func(m *MockHTTPClient) { m.AddResponse(http.StatusOK, strings.Repeat("x", 20)) }, 10, "exceeds 10 bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMockHTTPClient()
			tt.setup(m)
			_, err := Fetch(context.Background(), m, "http://example.test/derby.json", tt.max)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want it to contain %q", err, tt.wantErr)
			}
			if m.RequestCount() != 1 {
				t.Errorf("RequestCount = %d, want 1", m.RequestCount())
			}
		})
	}
}

func TestMockHTTPClient_Sequence(t *testing.T) {
	t.Parallel()

	m := NewMockHTTPClient().AddResponse(http.StatusOK, "first").AddResponse(http.StatusOK, "second")
	ctx := context.Background()

	for _, want := range []string{"first", "second", ""} {
		body, err := Fetch(ctx, m, "http://example.test/", 1024)
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}
		if string(body) != want {
			t.Errorf("body = %q, want %q", body, want)
		}
	}
	if m.Requests[0].Method != http.MethodGet {
		t.Errorf("method = %s, want GET", m.Requests[0].Method)
	}
}
