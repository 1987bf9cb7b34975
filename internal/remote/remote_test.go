package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mschirtzinger/flowboard/internal/backend"
	"github.com/mschirtzinger/flowboard/internal/schema"
)

func quietOpts() Options {
	return Options{Timeout: 2 * time.Second, Logger: log.New(io.Discard, "", 0)}
}

// docHandler serves a document server backed by a byte slice.
func docHandler(t *testing.T, stored *[]byte, healthy bool) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/api/data", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write(*stored)
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			*stored = body
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	return mux
}

func TestServer_RoundTrip(t *testing.T) {
	stored := []byte(`{"project":{"name":"未命名项目"},"parentModules":[],"modules":[],"tasks":[]}`)
	ts := httptest.NewServer(docHandler(t, &stored, true))
	defer ts.Close()

	s, err := NewServer(ts.URL+"/", quietOpts())
	if err != nil {
		t.Fatalf("NewServer() failed: %v", err)
	}
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping() failed: %v", err)
	}

	got, err := s.Read(ctx)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if got.Project.Name != schema.UntitledProjectName || schema.IsReal(got) {
		t.Errorf("Read() = %+v, want untitled empty document", got)
	}

	want := schema.Sample()
	if err := s.Write(ctx, want); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	got, err = s.Read(ctx)
	if err != nil {
		t.Fatalf("Read() after Write failed: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestServer_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unhealthy", func(t *testing.T) {
		stored := []byte(`{}`)
		ts := httptest.NewServer(docHandler(t, &stored, false))
		defer ts.Close()
		s, _ := NewServer(ts.URL, quietOpts())
		if err := s.Ping(ctx); !errors.Is(err, backend.ErrUnreachable) {
			t.Errorf("Ping() error = %v, want ErrUnreachable", err)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		stored := []byte(`[1,2,3]`)
		ts := httptest.NewServer(docHandler(t, &stored, true))
		defer ts.Close()
		s, _ := NewServer(ts.URL, quietOpts())
		if _, err := s.Read(ctx); !errors.Is(err, backend.ErrMalformed) {
			t.Errorf("Read() error = %v, want ErrMalformed", err)
		}
	})

	t.Run("connection refused", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		url := ts.URL
		ts.Close()
		s, _ := NewServer(url, quietOpts())
		if _, err := s.Read(ctx); !errors.Is(err, backend.ErrUnreachable) {
			t.Errorf("Read() error = %v, want ErrUnreachable", err)
		}
	})

	t.Run("write rejected", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer ts.Close()
		s, _ := NewServer(ts.URL, quietOpts())
		if err := s.Write(ctx, schema.Sample()); !errors.Is(err, backend.ErrRejected) {
			t.Errorf("Write() error = %v, want ErrRejected", err)
		}
	})
}

func TestNewServer_InvalidURL(t *testing.T) {
	for _, u := range []string{"", "localhost:8000", "ftp://x", "http://"} {
		if _, err := NewServer(u, quietOpts()); err == nil {
			t.Errorf("NewServer(%q) expected error", u)
		}
	}
}

func TestBreaker_OpensAfterFailures(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	opts := quietOpts()
	opts.FailureThreshold = 2
	opts.OpenTimeout = time.Hour
	s, err := NewServer(ts.URL, opts)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := s.Read(ctx); !errors.Is(err, backend.ErrUnreachable) {
			t.Fatalf("Read() #%d error = %v, want ErrUnreachable", i, err)
		}
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server hit %d times, want 2 before the breaker opened", got)
	}
}

func TestJSONBin(t *testing.T) {
	stored := []byte(`{"project":{"name":"Cloud"},"parentModules":[],"modules":[],"tasks":[]}`)
	var gotKey, gotMethod, gotPath string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Master-Key")
		gotMethod = r.Method
		gotPath = r.URL.Path
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/b/bin42/latest":
			envelope := map[string]json.RawMessage{"record": stored, "metadata": json.RawMessage(`{"id":"bin42"}`)}
			_ = json.NewEncoder(w).Encode(envelope)
		case r.Method == http.MethodPut && r.URL.Path == "/b/bin42":
			stored, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	b, err := NewCloud(CloudConfig{Type: CloudJSONBin, BinID: "bin42", APIKey: "secret", BaseURL: ts.URL}, quietOpts())
	if err != nil {
		t.Fatalf("NewCloud() failed: %v", err)
	}
	if b.Name() != CloudJSONBin {
		t.Errorf("Name() = %q", b.Name())
	}
	ctx := context.Background()

	doc, err := b.Read(ctx)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}
	if doc.Project.Name != "Cloud" {
		t.Errorf("record not unwrapped: %+v", doc)
	}
	if gotKey != "secret" {
		t.Errorf("X-Master-Key = %q", gotKey)
	}

	if err := b.Write(ctx, schema.Sample()); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/b/bin42" {
		t.Errorf("write went to %s %s", gotMethod, gotPath)
	}
	// Writes carry the raw document, no envelope.
	var written map[string]json.RawMessage
	if err := json.Unmarshal(stored, &written); err != nil {
		t.Fatal(err)
	}
	if _, ok := written["record"]; ok {
		t.Error("write wrapped the document in an envelope")
	}
	if _, ok := written["tasks"]; !ok {
		t.Error("write is missing the tasks field")
	}
}

func TestJSONBin_MissingRecord(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"Bin not found"}`))
	}))
	defer ts.Close()

	b, _ := NewCloud(CloudConfig{Type: CloudJSONBin, BinID: "b", APIKey: "k", BaseURL: ts.URL}, quietOpts())
	if _, err := b.Read(context.Background()); !errors.Is(err, backend.ErrMalformed) {
		t.Errorf("Read() error = %v, want ErrMalformed", err)
	}
}

func TestCustom(t *testing.T) {
	stored := []byte(`{"project":{"name":"Custom"},"tasks":[]}`)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/board.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write(stored)
		case http.MethodPost:
			stored, _ = io.ReadAll(r.Body)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer ts.Close()

	b, err := NewCloud(CloudConfig{Type: CloudCustom, URL: ts.URL + "/board.json"}, quietOpts())
	if err != nil {
		t.Fatalf("NewCloud() failed: %v", err)
	}
	ctx := context.Background()

	doc, err := b.Read(ctx)
	if err != nil || doc.Project.Name != "Custom" {
		t.Fatalf("Read() = %+v, %v", doc, err)
	}
	if err := b.Write(ctx, schema.Sample()); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	doc, err = b.Read(ctx)
	if err != nil || doc.Project.Name != schema.SampleProjectName {
		t.Errorf("Read() after Write = %+v, %v", doc, err)
	}
}

func TestCloudConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     CloudConfig
		wantErr bool
	}{
		{name: "jsonbin", cfg: CloudConfig{Type: CloudJSONBin, BinID: "b", APIKey: "k"}},
		{name: "jsonbin missing key", cfg: CloudConfig{Type: CloudJSONBin, BinID: "b"}, wantErr: true},
		{name: "custom", cfg: CloudConfig{Type: CloudCustom, URL: "https://example.com/board"}},
		{name: "custom missing url", cfg: CloudConfig{Type: CloudCustom}, wantErr: true},
		{name: "unknown", cfg: CloudConfig{Type: "s3"}, wantErr: true},
		{name: "empty", cfg: CloudConfig{}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCloudConfig_Redacted(t *testing.T) {
	got := CloudConfig{Type: CloudJSONBin, BinID: "b", APIKey: "abcdefgh"}.Redacted()
	if got.APIKey != "****efgh" {
		t.Errorf("Redacted().APIKey = %q", got.APIKey)
	}
}

type memKV map[string][]byte

func (m memKV) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m[key]
	if !ok {
		return nil, backend.ErrNoData
	}
	return v, nil
}

func (m memKV) Put(_ context.Context, key string, value []byte) error {
	m[key] = value
	return nil
}

func (m memKV) Delete(_ context.Context, key string) error {
	delete(m, key)
	return nil
}

func TestCloudConfigStore(t *testing.T) {
	ctx := context.Background()
	kv := memKV{}

	cfg, err := LoadCloudConfig(ctx, kv)
	if err != nil || !cfg.IsZero() {
		t.Fatalf("LoadCloudConfig() on empty = %+v, %v", cfg, err)
	}

	if err := SaveCloudConfig(ctx, kv, CloudConfig{Type: CloudCustom}); err == nil {
		t.Error("SaveCloudConfig() accepted an invalid config")
	}

	want := CloudConfig{Type: CloudJSONBin, BinID: "b", APIKey: "k"}
	if err := SaveCloudConfig(ctx, kv, want); err != nil {
		t.Fatalf("SaveCloudConfig() failed: %v", err)
	}
	if !json.Valid(kv[CloudConfigKey]) {
		t.Errorf("stored value is not JSON: %s", kv[CloudConfigKey])
	}
	got, err := LoadCloudConfig(ctx, kv)
	if err != nil || got != want {
		t.Errorf("LoadCloudConfig() = %+v, %v; want %+v", got, err, want)
	}

	if err := ClearCloudConfig(ctx, kv); err != nil {
		t.Fatal(err)
	}
	got, _ = LoadCloudConfig(ctx, kv)
	if !got.IsZero() {
		t.Errorf("config survived ClearCloudConfig: %+v", got)
	}

	kv[CloudConfigKey] = []byte(`{`)
	if _, err := LoadCloudConfig(ctx, kv); !errors.Is(err, backend.ErrMalformed) {
		t.Errorf("LoadCloudConfig() corrupt error = %v, want ErrMalformed", err)
	}
}
