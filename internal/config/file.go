package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// fileConfig is the on-disk shape. Durations are written as strings such as
// "15s" so that viper reads them back.
type fileConfig struct {
	DataDir   string        `toml:"data_dir"`
	Server    fileServer    `toml:"server"`
	Cloud     fileCloud     `toml:"cloud"`
	HTTP      fileHTTP      `toml:"http"`
	Log       fileLog       `toml:"log"`
	Dashboard fileDashboard `toml:"dashboard"`
	DocServer fileDocServer `toml:"docserver"`
}

type fileServer struct {
	URL string `toml:"url"`
}

type fileCloud struct {
	Type    string `toml:"type,omitempty"`
	BinID   string `toml:"bin_id,omitempty"`
	APIKey  string `toml:"api_key,omitempty"`
	URL     string `toml:"url,omitempty"`
	BaseURL string `toml:"base_url,omitempty"`
}

type fileHTTP struct {
	Timeout string `toml:"timeout"`
}

type fileLog struct {
	File string `toml:"file"`
}

type fileDashboard struct {
	Port int `toml:"port"`
}

type fileDocServer struct {
	Port int    `toml:"port"`
	File string `toml:"file"`
}

// Encode renders cfg as TOML.
func Encode(cfg *Config) ([]byte, error) {
	fc := fileConfig{
		DataDir: cfg.DataDir,
		Server:  fileServer{URL: cfg.Server.URL},
		Cloud: fileCloud{
			Type:    cfg.Cloud.Type,
			BinID:   cfg.Cloud.BinID,
			APIKey:  cfg.Cloud.APIKey,
			URL:     cfg.Cloud.URL,
			BaseURL: cfg.Cloud.BaseURL,
		},
		HTTP:      fileHTTP{Timeout: cfg.HTTP.Timeout.String()},
		Log:       fileLog{File: cfg.Log.File},
		Dashboard: fileDashboard{Port: cfg.Dashboard.Port},
		DocServer: fileDocServer{Port: cfg.DocServer.Port, File: cfg.DocServer.File},
	}

	var buf bytes.Buffer
	buf.WriteString("# flowboard configuration\n")
	buf.WriteString("# Environment variables FLOWBOARD_<SECTION>_<KEY> override these values.\n\n")
	if err := toml.NewEncoder(&buf).Encode(fc); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Init writes the default configuration to path. It refuses to overwrite an
// existing file unless force is set.
func Init(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		}
	}
	data, err := Encode(Defaults())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	// The file may later hold an api key.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
