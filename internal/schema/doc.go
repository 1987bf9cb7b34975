// Package schema defines the board document persisted by every flowboard backend.
//
// # Overview
//
// A board is one JSON document. The same document travels unchanged between the
// local cache, the remote document server and the cloud store, so the field
// names below are the wire format:
//
//	{
//	  "project":       {"name": "演示大事件"},
//	  "parentModules": [{"id": "pm1", "name": "..."}],
//	  "modules":       [{"id": "m1", "parentId": "pm1", "name": "...",
//	                     "color": "#ff6b6b", "startDate": "2023-11-01", "endDate": ""}],
//	  "tasks":         [{"id": "t1", "content": "...", "moduleId": "m1", "status": "done",
//	                     "startDate": "", "endDate": "", "duration": 5, "dependencies": []}]
//	}
//
// # Hierarchy
//
// ParentModule (project phase) -> Module (feature area) -> Task. Structural
// references never dangle after a mutation: deleting a parent removes its
// modules and their tasks, deleting a module removes its tasks. Task
// dependencies are the exception and may reference ids that no longer exist.
//
// # Realness
//
// Reconciliation needs to tell "a document the user actually wrote" from
// "the factory sample" or "a freshly initialised server". The rules live in
// realness.go as named predicates so they can be tested without any I/O.
//
// # Dates
//
// Dates are plain YYYY-MM-DD strings. Empty means "to be determined". Because
// the format is fixed width, lexicographic comparison is date comparison.
package schema
