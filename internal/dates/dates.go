// Package dates turns user-typed dates into the YYYY-MM-DD form stored in
// board documents. Besides literal dates it accepts English expressions such
// as "tomorrow", "next friday" or "in 3 days".
package dates

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/mschirtzinger/flowboard/internal/schema"
)

// Parser resolves relative expressions against a clock.
type Parser struct {
	w   *when.Parser
	now func() time.Time
}

// NewParser creates a Parser. If now is nil, time.Now is used.
func NewParser(now func() time.Time) *Parser {
	if now == nil {
		now = time.Now
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{w: w, now: now}
}

// Normalize returns s as YYYY-MM-DD. An empty input stays empty, meaning
// "no date".
func (p *Parser) Normalize(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if t, err := time.Parse(schema.DateLayout, s); err == nil {
		return t.Format(schema.DateLayout), nil
	}

	r, err := p.w.Parse(s, p.now())
	if err != nil {
		return "", fmt.Errorf("failed to parse date %q: %w", s, err)
	}
	if r == nil {
		return "", fmt.Errorf("unrecognised date %q (use YYYY-MM-DD or e.g. \"next monday\")", s)
	}
	return r.Time.Format(schema.DateLayout), nil
}

// Normalize is Parser.Normalize against the wall clock.
func Normalize(s string) (string, error) {
	return NewParser(nil).Normalize(s)
}
