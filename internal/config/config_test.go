package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/mschirtzinger/flowboard/internal/remote"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := DefaultPath(dir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	cfg, _, err := Load(Options{Dir: dir})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.File != "" {
		t.Errorf("File = %q, want none", cfg.File)
	}
	if cfg.DataDir != filepath.Join(dir, DirName) {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if cfg.CachePath() != filepath.Join(dir, DirName, CacheFile) {
		t.Errorf("CachePath() = %q", cfg.CachePath())
	}
	if cfg.HTTP.Timeout != remote.DefaultTimeout {
		t.Errorf("Timeout = %s", cfg.HTTP.Timeout)
	}
	if cfg.Server.URL != "" || !cfg.Cloud.IsZero() {
		t.Errorf("remote configured by default: %+v %+v", cfg.Server, cfg.Cloud)
	}
	if cfg.Dashboard.Port != 8090 || cfg.DocServer.Port != 3000 {
		t.Errorf("ports = %d, %d", cfg.Dashboard.Port, cfg.DocServer.Port)
	}
}

func TestLoad_Precedence(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[server]
url = "http://file:3000"

[http]
timeout = "20s"

[log]
file = "from-file.log"
`)

	// Env beats the file for timeout and log file.
	t.Setenv("FLOWBOARD_HTTP_TIMEOUT", "5s")
	t.Setenv("FLOWBOARD_LOG_FILE", "from-env.log")

	// Flags beat env for the log file, and the file for server url.
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("server", "", "")
	fs.String("log-file", "", "")
	fs.Duration("timeout", 0, "")
	if err := fs.Parse([]string{"--log-file", "from-flag.log"}); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := Load(Options{
		Dir:   dir,
		Flags: fs,
		Bindings: map[string]string{
			"server.url":   "server",
			"log.file":     "log-file",
			"http.timeout": "timeout",
		},
	})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	tests := []struct {
		name, got, want string
	}{
		{"server.url from file (flag unset)", cfg.Server.URL, "http://file:3000"},
		{"http.timeout from env", cfg.HTTP.Timeout.String(), (5 * time.Second).String()},
		{"log.file from flag", cfg.Log.File, "from-flag.log"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
	if cfg.File != DefaultPath(dir) {
		t.Errorf("File = %q", cfg.File)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("FLOWBOARD_CLOUD_TYPE=jsonbin\nFLOWBOARD_CLOUD_BIN_ID=bin42\nFLOWBOARD_CLOUD_API_KEY=secret-key\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("FLOWBOARD_CLOUD_TYPE")
		os.Unsetenv("FLOWBOARD_CLOUD_BIN_ID")
		os.Unsetenv("FLOWBOARD_CLOUD_API_KEY")
	})

	cfg, _, err := Load(Options{Dir: dir})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	want := remote.CloudConfig{Type: "jsonbin", BinID: "bin42", APIKey: "secret-key"}
	if cfg.Cloud != want {
		t.Errorf("Cloud = %+v, want %+v", cfg.Cloud, want)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed toml", "[server\nurl = "},
		{"invalid cloud", "[cloud]\ntype = \"jsonbin\"\n"},
		{"zero timeout", "[http]\ntimeout = \"0s\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.body)
			if _, _, err := Load(Options{Dir: dir}); err == nil {
				t.Error("Load() expected error")
			}
		})
	}

	if _, _, err := Load(Options{Dir: t.TempDir(), File: "/does/not/exist.toml"}); err == nil {
		t.Error("Load() with explicit missing file expected error")
	}
}

func TestInit_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := DefaultPath(dir)
	if err := Init(path, false); err != nil {
		t.Fatalf("Init() failed: %v", err)
	}
	if err := Init(path, false); err == nil {
		t.Error("second Init() expected error without force")
	}
	if err := Init(path, true); err != nil {
		t.Errorf("Init(force) failed: %v", err)
	}

	cfg, _, err := Load(Options{Dir: dir})
	if err != nil {
		t.Fatalf("Load() of generated file failed: %v", err)
	}
	if cfg.File != path {
		t.Errorf("File = %q, want %q", cfg.File, path)
	}
	if cfg.HTTP.Timeout != remote.DefaultTimeout || cfg.DataDir != filepath.Join(dir, DirName) {
		t.Errorf("generated file changed defaults: %+v", cfg)
	}
}
