package schema

// IsReal reports whether a candidate document holds genuine user content.
//
// A document is real when either rule holds:
//   - it has at least one task
//   - its project name is neither the sample name nor the untitled name
//
// A nil document is never real. The untouched sample has tasks and is
// therefore real by this rule; reconciliation relies on that exact behaviour.
func IsReal(d *Document) bool {
	if d == nil {
		return false
	}
	if len(d.Tasks) > 0 {
		return true
	}
	return d.Project.Name != SampleProjectName && d.Project.Name != UntitledProjectName
}

// IsUntouchedSample reports whether a cached document still looks like the
// compiled-in sample: sample project name and the sample's task ids, in order.
//
// Task contents, dates and statuses are not compared. Only a document that
// passes this check may be replaced by a legacy migration.
func IsUntouchedSample(d *Document) bool {
	if d == nil {
		return false
	}
	sample := Sample()
	if d.Project.Name != sample.Project.Name {
		return false
	}
	if len(d.Tasks) != len(sample.Tasks) {
		return false
	}
	for i := range sample.Tasks {
		if d.Tasks[i].ID != sample.Tasks[i].ID {
			return false
		}
	}
	return true
}
