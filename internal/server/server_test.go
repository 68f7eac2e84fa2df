package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tordrt/schemadsl"
	"github.com/tordrt/schemadsl/internal/logging"
)

const usersSource = `Table users {
  id int [pk]
  email varchar(255) [unique]
}
`

func newTestServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	return New(cfg, logging.Discard())
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	srv := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}

func TestParseEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name        string
		source      string
		wantSuccess bool
		wantTables  int
	}{
		{"valid", usersSource, true, 1},
		{"missing table name", "Table { id int }\nTable ok { id int }", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, srv, "/api/v1/parse", parseRequest{Source: tt.source})
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}

			var result schemadsl.ParseResult
			if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
				t.Fatal(err)
			}
			if result.Success != tt.wantSuccess {
				t.Errorf("success = %v, want %v (errors %v)", result.Success, tt.wantSuccess, result.Errors)
			}
			tables := 0
			if result.Schema != nil {
				tables = len(result.Schema.Tables)
			}
			if tables != tt.wantTables {
				t.Errorf("tables = %d, want %d", tables, tt.wantTables)
			}
		})
	}
}

func TestParseEndpointHonorsOptions(t *testing.T) {
	srv := newTestServer(t, nil)
	source := "Table { }\nTable ok { id int }"

	rec := post(t, srv, "/api/v1/parse", parseRequest{
		Source:  source,
		Options: &schemadsl.ParseOptions{IgnoreErrors: true},
	})

	var result schemadsl.ParseResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Schema == nil || len(result.Schema.Tables) != 1 {
		t.Errorf("IgnoreErrors should return the recovered schema, got %+v", result.Schema)
	}
}

func TestParseEndpointTimeoutInMilliseconds(t *testing.T) {
	srv := newTestServer(t, nil)
	source := strings.Repeat("Table users { id int [pk] }\n", 2000)

	rec := post(t, srv, "/api/v1/parse", map[string]any{
		"source":  source,
		"options": map[string]any{"timeout": 30000, "maxErrors": 100},
	})

	var result schemadsl.ParseResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if !result.Success {
		t.Errorf("timeout 30000 should mean 30s, got errors %v", result.Errors)
	}
}

func TestParseOptionsCapTimeout(t *testing.T) {
	srv := newTestServer(t, func(c *Config) { c.Parse.Timeout = time.Second })

	got := srv.parseOptions(&schemadsl.ParseOptions{Timeout: time.Hour})
	if got.Timeout != time.Second {
		t.Errorf("timeout = %v, want capped to 1s", got.Timeout)
	}
	if got.MaxErrors != schemadsl.DefaultMaxErrors {
		t.Errorf("max errors = %d, want default", got.MaxErrors)
	}

	got = srv.parseOptions(nil)
	if got.Timeout != time.Second {
		t.Errorf("nil options timeout = %v", got.Timeout)
	}
}

func TestTokensEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := post(t, srv, "/api/v1/tokens", parseRequest{Source: "Table users { id int }"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Tokens []struct {
			Type string `json:"type"`
			Raw  string `json:"raw"`
		} `json:"tokens"`
		Errors []any `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	var types []string
	for _, tok := range resp.Tokens {
		types = append(types, tok.Type)
	}
	want := "TABLE IDENTIFIER LBRACE IDENTIFIER TYPE_NAME RBRACE EOF"
	if got := strings.Join(types, " "); got != want {
		t.Errorf("token types = %s, want %s", got, want)
	}
	if resp.Errors == nil || len(resp.Errors) != 0 {
		t.Errorf("errors = %v, want empty list", resp.Errors)
	}
}

func TestFormatEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	t.Run("dbml", func(t *testing.T) {
		rec := post(t, srv, "/api/v1/format", formatRequest{Source: usersSource})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
		}
		if !strings.Contains(rec.Body.String(), "email varchar(255) [unique]") {
			t.Errorf("body = %s", rec.Body.String())
		}
	})

	t.Run("markdown", func(t *testing.T) {
		rec := post(t, srv, "/api/v1/format", formatRequest{Source: usersSource, Format: "markdown"})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/markdown") {
			t.Errorf("content type = %q", rec.Header().Get("Content-Type"))
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		rec := post(t, srv, "/api/v1/format", formatRequest{Source: usersSource, Format: "pdf"})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("broken source", func(t *testing.T) {
		rec := post(t, srv, "/api/v1/format", formatRequest{Source: "Table {"})
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})
}

func TestBadRequests(t *testing.T) {
	srv := newTestServer(t, func(c *Config) { c.MaxBodyBytes = 64 })

	req := httptest.NewRequest(http.MethodPost, "/api/v1/parse", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid JSON status = %d, want 400", rec.Code)
	}

	rec = post(t, srv, "/api/v1/parse", parseRequest{Source: strings.Repeat("x", 200)})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("large body status = %d, want 413", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, func(c *Config) { c.RateLimit = 2 })

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = post(t, srv, "/api/v1/tokens", parseRequest{Source: "x"}).Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("status codes = %v, want [200 200 429]", codes)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	srv := newTestServer(t, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
