// Package migrate upgrades boards saved by older flowboard generations into
// the current document shape.
//
// Three generations exist:
//
//	V1: stages + flat modules + tasks keyed by stageId/moduleId
//	V2: modules + tasks, no parent modules
//	V3: parentModules -> modules -> tasks (current, see package schema)
//
// Migrations are one-way. The legacy copy is read but never rewritten or
// removed, so it stays available for manual recovery.
package migrate

import (
	"encoding/json"
	"fmt"

	"github.com/mschirtzinger/flowboard/internal/schema"
)

// Version identifies a document generation.
type Version int

const (
	V1 Version = iota + 1
	V2
	V3
)

// String returns "v1", "v2" or "v3".
func (v Version) String() string {
	switch v {
	case V1:
		return "v1"
	case V2:
		return "v2"
	case V3:
		return "v3"
	default:
		return "unknown"
	}
}

// Ids and names synthesized by the migrations.
const (
	DefaultParentID   = "pm_default"
	DefaultParentName = "默认项目模块"
	RecoveredParentID = "pm_rec"
	RecoveredParent   = "恢复的旧版数据"
	RecoveredProject  = "恢复的项目"
	RecoveredColor    = "#5bc17f"
	DefaultDuration   = 1
	defaultTaskStatus = schema.StatusPending
)

// V1Document is the first-generation board.
type V1Document struct {
	Stages  []V1Stage  `json:"stages"`
	Modules []V1Module `json:"modules"`
	Tasks   []V1Task   `json:"tasks"`
}

// V1Stage became a module in V3.
type V1Stage struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Date string `json:"date,omitempty"`
}

// V1Module was a flat tag-like grouping. It has no V3 counterpart and
// survives only as a "[Name]" prefix on task content.
type V1Module struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// V1Task is a first-generation task.
type V1Task struct {
	ID           string      `json:"id"`
	Content      string      `json:"content"`
	StageID      string      `json:"stageId"`
	ModuleID     string      `json:"moduleId,omitempty"`
	Status       string      `json:"status,omitempty"`
	StartDate    string      `json:"startDate,omitempty"`
	EndDate      string      `json:"endDate,omitempty"`
	Duration     schema.Days `json:"duration,omitempty"`
	Dependencies []string    `json:"dependencies,omitempty"`
}

// DecodeV1 parses a first-generation board.
func DecodeV1(data []byte) (*V1Document, error) {
	if err := requireObject(data); err != nil {
		return nil, err
	}
	var v1 V1Document
	if err := json.Unmarshal(data, &v1); err != nil {
		return nil, fmt.Errorf("failed to parse v1 document: %w", err)
	}
	return &v1, nil
}

// DecodeV2 parses a second-generation board. V2 shares the V3 field names,
// it only lacks parent modules.
func DecodeV2(data []byte) (*schema.Document, error) {
	if err := requireObject(data); err != nil {
		return nil, err
	}
	doc, err := schema.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse v2 document: %w", err)
	}
	return doc, nil
}

func requireObject(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil || probe == nil {
		return fmt.Errorf("legacy document is not a JSON object")
	}
	return nil
}

// V1ToV3 converts a first-generation board.
//
// Every stage becomes a module under one synthesized parent, keeping the
// stage id so task references stay valid. Tasks move to the module of their
// old stage; the name of the discarded flat module, when it resolves, is
// prepended to the content as "[Name] ". A missing or unknown status becomes
// pending; missing duration and dependencies default to 1 and empty.
func V1ToV3(v1 *V1Document) *schema.Document {
	doc := &schema.Document{
		Project:       schema.Project{Name: RecoveredProject},
		ParentModules: []schema.ParentModule{{ID: RecoveredParentID, Name: RecoveredParent}},
		Modules:       make([]schema.Module, 0, len(v1.Stages)),
		Tasks:         make([]schema.Task, 0, len(v1.Tasks)),
	}

	for _, s := range v1.Stages {
		doc.Modules = append(doc.Modules, schema.Module{
			ID:        s.ID,
			ParentID:  RecoveredParentID,
			Name:      s.Name,
			Color:     RecoveredColor,
			StartDate: s.Date,
			EndDate:   "",
		})
	}

	oldModules := make(map[string]string, len(v1.Modules))
	for _, m := range v1.Modules {
		oldModules[m.ID] = m.Name
	}

	for _, t := range v1.Tasks {
		content := t.Content
		if t.ModuleID != "" {
			if name, ok := oldModules[t.ModuleID]; ok {
				content = fmt.Sprintf("[%s] %s", name, content)
			}
		}

		status := t.Status
		if !schema.IsValidStatus(status) {
			status = defaultTaskStatus
		}
		duration := t.Duration
		if duration == 0 {
			duration = DefaultDuration
		}
		deps := t.Dependencies
		if deps == nil {
			deps = []string{}
		}

		doc.Tasks = append(doc.Tasks, schema.Task{
			ID:           t.ID,
			Content:      content,
			ModuleID:     t.StageID,
			Status:       status,
			StartDate:    t.StartDate,
			EndDate:      t.EndDate,
			Duration:     duration,
			Dependencies: deps,
		})
	}

	return doc
}

// V2ToV3 converts a second-generation board in place and returns it.
//
// A default parent is synthesized when the document has no parent list, every
// module without a parent is assigned to it, and a missing task list becomes
// empty.
func V2ToV3(doc *schema.Document) *schema.Document {
	if doc.ParentModules == nil {
		doc.ParentModules = []schema.ParentModule{{ID: DefaultParentID, Name: DefaultParentName}}
	}
	for i := range doc.Modules {
		if doc.Modules[i].ParentID == "" {
			doc.Modules[i].ParentID = DefaultParentID
		}
	}
	if doc.Tasks == nil {
		doc.Tasks = []schema.Task{}
	}
	ensureParent(doc, DefaultParentID, DefaultParentName)
	return doc
}

// NormalizeV3 repairs a cached current-generation board in place: missing
// collections become empty, a missing project gets the fallback name, and if
// modules exist without any parent they are all placed under the default
// parent. A document that is already consistent is returned unchanged.
func NormalizeV3(doc *schema.Document) *schema.Document {
	if doc.Project.Name == "" {
		doc.Project.Name = schema.FallbackProjectName
	}
	if doc.ParentModules == nil {
		doc.ParentModules = []schema.ParentModule{}
	}
	if doc.Modules == nil {
		doc.Modules = []schema.Module{}
	}
	if doc.Tasks == nil {
		doc.Tasks = []schema.Task{}
	}

	if len(doc.Modules) > 0 && len(doc.ParentModules) == 0 {
		doc.ParentModules = append(doc.ParentModules, schema.ParentModule{ID: DefaultParentID, Name: DefaultParentName})
	}
	orphaned := false
	for i := range doc.Modules {
		if doc.Modules[i].ParentID == "" {
			doc.Modules[i].ParentID = DefaultParentID
			orphaned = true
		}
	}
	if orphaned {
		ensureParent(doc, DefaultParentID, DefaultParentName)
	}

	for i := range doc.Tasks {
		if doc.Tasks[i].Dependencies == nil {
			doc.Tasks[i].Dependencies = []string{}
		}
	}
	return doc
}

// ensureParent adds the parent if some module points at it but it is missing,
// e.g. a V2 document that had an explicit but incomplete parent list.
func ensureParent(doc *schema.Document, id, name string) {
	if doc.FindParent(id) != nil {
		return
	}
	for _, m := range doc.Modules {
		if m.ParentID == id {
			doc.ParentModules = append(doc.ParentModules, schema.ParentModule{ID: id, Name: name})
			return
		}
	}
}
