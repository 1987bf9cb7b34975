package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/mschirtzinger/flowboard/internal/backend"
	"github.com/mschirtzinger/flowboard/internal/schema"
)

// Cloud variants.
const (
	CloudJSONBin = "jsonbin"
	CloudCustom  = "custom"
)

// DefaultJSONBinBase is the jsonbin API root.
const DefaultJSONBinBase = "https://api.jsonbin.io/v3"

// CloudConfig selects and configures one cloud variant. The JSON form is what
// the local cache stores under the cloud-config key.
type CloudConfig struct {
	Type    string `json:"type" mapstructure:"type"`
	BinID   string `json:"binId,omitempty" mapstructure:"bin_id"`
	APIKey  string `json:"apiKey,omitempty" mapstructure:"api_key"`
	URL     string `json:"url,omitempty" mapstructure:"url"`
	BaseURL string `json:"baseUrl,omitempty" mapstructure:"base_url"`
}

// IsZero reports whether no cloud is configured.
func (c CloudConfig) IsZero() bool {
	return c.Type == ""
}

// Validate checks that the fields required by the variant are present.
func (c CloudConfig) Validate() error {
	switch c.Type {
	case CloudJSONBin:
		if c.BinID == "" || c.APIKey == "" {
			return fmt.Errorf("jsonbin requires both a bin id and an api key")
		}
	case CloudCustom:
		u, err := url.Parse(c.URL)
		if c.URL == "" || err != nil || u.Host == "" {
			return fmt.Errorf("custom cloud requires a valid url")
		}
	default:
		return fmt.Errorf("unknown cloud type %q (must be jsonbin or custom)", c.Type)
	}
	return nil
}

// Redacted returns a copy safe for display.
func (c CloudConfig) Redacted() CloudConfig {
	if len(c.APIKey) > 4 {
		c.APIKey = strings.Repeat("*", len(c.APIKey)-4) + c.APIKey[len(c.APIKey)-4:]
	} else if c.APIKey != "" {
		c.APIKey = "****"
	}
	return c
}

// NewCloud builds the backend for the configured variant.
func NewCloud(cfg CloudConfig, opts Options) (backend.Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Type {
	case CloudJSONBin:
		base := strings.TrimRight(cfg.BaseURL, "/")
		if base == "" {
			base = DefaultJSONBinBase
		}
		return &JSONBin{
			base:  base,
			binID: cfg.BinID,
			key:   cfg.APIKey,
			c:     newClient(CloudJSONBin, opts),
		}, nil
	default:
		return &Custom{url: cfg.URL, c: newClient(CloudCustom, opts)}, nil
	}
}

// JSONBin stores the board in a jsonbin.io bin. Reads come wrapped in an
// envelope whose "record" field holds the document; writes send the raw
// document.
type JSONBin struct {
	base  string
	binID string
	key   string
	c     *client
}

// Name implements backend.Backend.
func (j *JSONBin) Name() string { return CloudJSONBin }

func (j *JSONBin) header() http.Header {
	h := http.Header{}
	h.Set("X-Master-Key", j.key)
	return h
}

// Read implements backend.Backend.
func (j *JSONBin) Read(ctx context.Context) (*schema.Document, error) {
	data, err := j.c.do(ctx, "read", http.MethodGet, fmt.Sprintf("%s/b/%s/latest", j.base, url.PathEscape(j.binID)), j.header(), nil)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Record json.RawMessage `json:"record"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, backend.Wrap(j.Name(), "read", backend.ErrMalformed, err)
	}
	if len(envelope.Record) == 0 {
		return nil, backend.Wrap(j.Name(), "read", backend.ErrMalformed, errors.New("response has no record"))
	}
	return j.c.decode(envelope.Record)
}

// Write implements backend.Backend.
func (j *JSONBin) Write(ctx context.Context, doc *schema.Document) error {
	body, err := encode(doc)
	if err != nil {
		return err
	}
	_, err = j.c.do(ctx, "write", http.MethodPut, fmt.Sprintf("%s/b/%s", j.base, url.PathEscape(j.binID)), j.header(), body)
	return err
}

// Custom is any endpoint that returns the raw document on GET and accepts it
// on POST, unauthenticated.
type Custom struct {
	url string
	c   *client
}

// Name implements backend.Backend.
func (c *Custom) Name() string { return CloudCustom }

// Read implements backend.Backend.
func (c *Custom) Read(ctx context.Context) (*schema.Document, error) {
	data, err := c.c.do(ctx, "read", http.MethodGet, c.url, nil, nil)
	if err != nil {
		return nil, err
	}
	return c.c.decode(data)
}

// Write implements backend.Backend.
func (c *Custom) Write(ctx context.Context, doc *schema.Document) error {
	body, err := encode(doc)
	if err != nil {
		return err
	}
	_, err = c.c.do(ctx, "write", http.MethodPost, c.url, nil, body)
	return err
}
