package view

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mschirtzinger/flowboard/internal/risk"
	"github.com/mschirtzinger/flowboard/internal/schema"
)

func TestTimeline_Sample(t *testing.T) {
	b := NewBoard(schema.Sample(), "2023-11-17")
	rows := Timeline(b)

	type brief struct {
		Kind, ID string
		Depth    int
	}
	var got []brief
	for _, r := range rows {
		got = append(got, brief{r.Kind, r.ID, r.Depth})
	}
	want := []brief{
		{KindParent, "pm1", 0},
		{KindModule, "m1", 1},
		{KindTask, "t1", 2},
		{KindTask, "t2", 2},
		{KindParent, "pm2", 0},
		{KindModule, "m2", 1},
		{KindTask, "t3", 2},
		{KindModule, "m3", 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Timeline() order mismatch (-want +got):\n%s", diff)
	}

	pm2 := rows[4]
	if pm2.Start != "2023-11-16" || pm2.End != "2023-12-20" {
		t.Errorf("pm2 span = %s..%s, want 2023-11-16..2023-12-20", pm2.Start, pm2.End)
	}
	if rows[0].Done != 1 || rows[0].Total != 2 {
		t.Errorf("pm1 progress = %d/%d, want 1/2", rows[0].Done, rows[0].Total)
	}
	if rows[6].Color != "#4facfe" {
		t.Errorf("task row colour = %q, want module colour", rows[6].Color)
	}
}

func TestNewBoard_Risk(t *testing.T) {
	doc := schema.Sample()
	// t1 reopened: t2 and t3 depend on it and have started.
	doc.Tasks[0].Status = schema.StatusPending

	b := NewBoard(doc, "2023-11-17")
	if got := b.Risk["t3"].Status; got != risk.StatusBlocked {
		t.Errorf("t3 = %s, want blocked", got)
	}
	if b.Summary.Blocked != 2 || b.Summary.Done != 0 {
		t.Errorf("Summary = %+v, want 2 blocked", b.Summary)
	}

	rows := Timeline(b)
	for _, r := range rows {
		if r.Kind == KindTask && r.ID == "t2" && r.Risk != risk.StatusBlocked {
			t.Errorf("t2 row risk = %s, want blocked", r.Risk)
		}
	}
}

func TestColumns(t *testing.T) {
	cols := Columns(schema.Sample())
	if len(cols) != 3 {
		t.Fatalf("Columns() = %d, want 3", len(cols))
	}
	if cols[0].Module.ID != "m1" || len(cols[0].Tasks) != 2 {
		t.Errorf("first column = %s with %d tasks", cols[0].Module.ID, len(cols[0].Tasks))
	}
	if cols[2].Parent.ID != "pm2" || len(cols[2].Tasks) != 0 {
		t.Errorf("last column = %s/%s with %d tasks", cols[2].Parent.ID, cols[2].Module.ID, len(cols[2].Tasks))
	}
}

func TestTimeline_Empty(t *testing.T) {
	if rows := Timeline(NewBoard(schema.Untitled(), "2024-01-01")); len(rows) != 0 {
		t.Errorf("Timeline(untitled) = %d rows, want 0", len(rows))
	}
}
