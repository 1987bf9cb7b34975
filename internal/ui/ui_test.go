package ui

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mschirtzinger/flowboard/internal/board"
	"github.com/mschirtzinger/flowboard/internal/schema"
	"github.com/mschirtzinger/flowboard/internal/sync"
	"github.com/mschirtzinger/flowboard/internal/view"
)

func TestMain(m *testing.M) {
	SetColor(false)
	os.Exit(m.Run())
}

func TestRenderBoard(t *testing.T) {
	doc := schema.Sample()
	doc.Tasks[0].Status = schema.StatusPending
	v := view.NewBoard(doc, "2023-11-17")

	var buf bytes.Buffer
	RenderBoard(&buf, v, board.StatusServerFailed)
	out := buf.String()

	for _, want := range []string{
		schema.SampleProjectName + "  ● server-sync-failed",
		"1 ok, 0 at risk, 2 blocked, 0 done",
		"■ 用户中心 (m1) 2023-11-01 → 2023-11-15  0/2",
		"[~] t2 OAuth2.0 集成 2023-11-06 → 2023-11-10  BLOCKED by 用户登录注册API",
		"数据引擎 (m3)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("board output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderBoard_Empty(t *testing.T) {
	var buf bytes.Buffer
	RenderBoard(&buf, view.NewBoard(schema.Untitled(), "2024-01-01"), board.StatusLocal)
	if !strings.Contains(buf.String(), "Empty board") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestRenderBoard_Ungrouped(t *testing.T) {
	doc := schema.Untitled()
	doc.Modules = append(doc.Modules, schema.Module{ID: "m9", Name: "Loose"})
	doc.Tasks = append(doc.Tasks, schema.Task{ID: "t9", Content: "Orphan work", ModuleID: "m9", Status: schema.StatusPending})

	var buf bytes.Buffer
	RenderBoard(&buf, view.NewBoard(doc, "2024-01-01"), board.StatusLocal)
	out := buf.String()
	for _, want := range []string{"Ungrouped", "■ Loose (m9)  0/1", "[ ] t9 Orphan work"} {
		if !strings.Contains(out, want) {
			t.Errorf("board output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderTimeline(t *testing.T) {
	rows := view.Timeline(view.NewBoard(schema.Sample(), "2023-11-17"))

	var buf bytes.Buffer
	RenderTimeline(&buf, rows)
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	if lines[0] != "range  2023-11-01 → 2023-12-20" {
		t.Errorf("range line = %q", lines[0])
	}
	if len(lines) != len(rows)+1 {
		t.Fatalf("got %d lines, want %d", len(lines), len(rows)+1)
	}
	// m1 starts at the left edge, m3 ends at the right edge.
	m1 := lines[2]
	if !strings.Contains(m1, "  █") {
		t.Errorf("m1 bar does not start at the left edge: %q", m1)
	}
	m3 := lines[len(lines)-1]
	if !strings.HasSuffix(m3, "█") {
		t.Errorf("m3 bar does not reach the right edge: %q", m3)
	}
}

func TestRenderSources(t *testing.T) {
	var buf bytes.Buffer
	RenderSources(&buf, []sync.SourceInfo{
		{Source: sync.SourceLocal, State: sync.StateOK, Backend: "local", Project: "P", Modules: 2, Tasks: 5},
		{Source: sync.SourceV1, State: sync.StateNoData},
	})
	out := buf.String()
	if !strings.Contains(out, `local   ok [local]  "P"  2 modules, 5 tasks`) {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "v1      no data") {
		t.Errorf("output = %q", out)
	}
}

func TestConfirm(t *testing.T) {
	yes := func(string, string) (bool, error) { return true, nil }
	no := func(string, string) (bool, error) { return false, nil }
	tty := func() bool { return true }
	pipe := func() bool { return false }

	tests := []struct {
		name string
		c    Confirmer
		want error
	}{
		{"--yes skips prompt", Confirmer{Yes: true, IsTerminal: pipe, Ask: no}, nil},
		{"not a terminal", Confirmer{IsTerminal: pipe, Ask: yes}, ErrNotTerminal},
		{"accepted", Confirmer{IsTerminal: tty, Ask: yes}, nil},
		{"declined", Confirmer{IsTerminal: tty, Ask: no}, ErrDeclined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.c.Confirm("Delete?", "")
			if !errors.Is(err, tt.want) {
				t.Errorf("Confirm() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAgo(t *testing.T) {
	now := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		d    time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{72 * time.Hour, "3d ago"},
	}
	for _, tt := range tests {
		if got := Ago(now.Add(-tt.d), now); got != tt.want {
			t.Errorf("Ago(-%s) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
