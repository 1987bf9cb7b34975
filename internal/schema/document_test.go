package schema

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "object", input: `{"project":{"name":"x"},"tasks":[]}`},
		{name: "leading whitespace", input: "\n  {\"project\":{\"name\":\"x\"}}"},
		{name: "null", input: `null`, wantErr: true},
		{name: "array", input: `[]`, wantErr: true},
		{name: "empty", input: ``, wantErr: true},
		{name: "truncated", input: `{"project":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("Decode() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDays_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input string
		want  Days
	}{
		{`5`, 5},
		{`"7"`, 7},
		{`" 3 "`, 3},
		{`""`, 0},
		{`"abc"`, 0},
		{`null`, 0},
		{`2.0`, 2},
	}

	for _, tt := range tests {
		var task Task
		data := `{"id":"t","duration":` + tt.input + `}`
		if err := json.Unmarshal([]byte(data), &task); err != nil {
			t.Fatalf("Unmarshal(%s) failed: %v", tt.input, err)
		}
		if task.Duration != tt.want {
			t.Errorf("duration %s = %d, want %d", tt.input, task.Duration, tt.want)
		}
	}
}

func TestEncode_WireNames(t *testing.T) {
	data, err := Sample().Encode()
	if err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	for _, field := range []string{`"parentModules"`, `"parentId"`, `"moduleId"`, `"startDate"`, `"endDate"`, `"dependencies"`, `"duration": 5`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("encoded document missing %s", field)
		}
	}
}

func TestIsCurrent(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want bool
	}{
		{name: "v3 empty parents", doc: `{"parentModules":[],"modules":[],"tasks":[]}`, want: true},
		{name: "v3 full", doc: `{"parentModules":[{"id":"p"}],"modules":[{"id":"m","parentId":"p"}]}`, want: true},
		{name: "v2 no parents", doc: `{"modules":[{"id":"m"}],"tasks":[]}`, want: false},
		{name: "orphan module", doc: `{"parentModules":[{"id":"p"}],"modules":[{"id":"m"}]}`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Decode([]byte(tt.doc))
			if err != nil {
				t.Fatalf("Decode() failed: %v", err)
			}
			if got := doc.IsCurrent(); got != tt.want {
				t.Errorf("IsCurrent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	if err := Sample().Validate(); err != nil {
		t.Fatalf("sample should validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(d *Document)
		errMsg string
	}{
		{
			name:   "duplicate task",
			mutate: func(d *Document) { d.Tasks = append(d.Tasks, d.Tasks[0]) },
			errMsg: "duplicate task id",
		},
		{
			name:   "unknown module",
			mutate: func(d *Document) { d.Tasks[0].ModuleID = "nope" },
			errMsg: "unknown module",
		},
		{
			name:   "unknown parent",
			mutate: func(d *Document) { d.Modules[0].ParentID = "nope" },
			errMsg: "unknown parent",
		},
		{
			name:   "bad status",
			mutate: func(d *Document) { d.Tasks[0].Status = "closed" },
			errMsg: "invalid status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := Sample()
			tt.mutate(doc)
			err := doc.Validate()
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() error = %q, want substring %q", err.Error(), tt.errMsg)
			}
		})
	}
}

func TestValidate_DanglingDependencyAllowed(t *testing.T) {
	doc := Sample()
	doc.Tasks[1].Dependencies = []string{"gone"}
	if err := doc.Validate(); err != nil {
		t.Errorf("dangling dependency should be tolerated: %v", err)
	}
}

func TestClone_Independent(t *testing.T) {
	orig := Sample()
	clone := orig.Clone()

	clone.Tasks[1].Dependencies[0] = "changed"
	clone.Modules[0].Name = "changed"
	clone.Project.Name = "changed"

	if orig.Tasks[1].Dependencies[0] != "t1" {
		t.Error("clone shares dependency slice with original")
	}
	if orig.Modules[0].Name == "changed" {
		t.Error("clone shares module slice with original")
	}
	if orig.Project.Name != SampleProjectName {
		t.Error("clone shares project with original")
	}
}

func TestModuleStats(t *testing.T) {
	done, total := Sample().ModuleStats("m1")
	if done != 1 || total != 2 {
		t.Errorf("ModuleStats(m1) = %d/%d, want 1/2", done, total)
	}
}
