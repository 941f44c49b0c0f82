package planner

import "time"

// ProjectContext holds the full textual state of one planning session: the
// PRD, the generated architecture/specifications/file-structure blobs, and
// the current task list.
//
// Contexts are immutable by convention between pipeline stages: every
// mutating helper returns a new context with Version incremented, so
// concurrent readers never observe partial updates. The Version counter is
// local to one context chain; there is no global state.
type ProjectContext struct {
	PRD            string    `json:"prd"`
	Architecture   string    `json:"architecture,omitempty"`
	Specifications string    `json:"specifications,omitempty"`
	FileStructure  string    `json:"file_structure,omitempty"`
	Tasks          []Task    `json:"tasks"`
	Version        int       `json:"version"`
	LastUpdated    time.Time `json:"last_updated"`
}

// NewProjectContext creates a fresh context for one planning session.
func NewProjectContext(prd string) *ProjectContext {
	return &ProjectContext{
		PRD:         prd,
		Version:     1,
		LastUpdated: time.Now(),
	}
}

// clone returns a deep copy with Version incremented.
func (pc *ProjectContext) clone() *ProjectContext {
	next := *pc
	next.Tasks = cloneTasks(pc.Tasks)
	next.Version = pc.Version + 1
	next.LastUpdated = time.Now()
	return &next
}

// WithArchitecture returns a new context with the architecture text replaced.
func (pc *ProjectContext) WithArchitecture(text string) *ProjectContext {
	next := pc.clone()
	next.Architecture = text
	return next
}

// WithSpecifications returns a new context with the specifications replaced.
func (pc *ProjectContext) WithSpecifications(text string) *ProjectContext {
	next := pc.clone()
	next.Specifications = text
	return next
}

// WithFileStructure returns a new context with the file tree replaced.
func (pc *ProjectContext) WithFileStructure(text string) *ProjectContext {
	next := pc.clone()
	next.FileStructure = text
	return next
}

// WithTasks returns a new context with the task list replaced. The incoming
// slice is deep-copied, so callers may keep mutating their own copy.
func (pc *ProjectContext) WithTasks(tasks []Task) *ProjectContext {
	next := pc.clone()
	next.Tasks = cloneTasks(tasks)
	return next
}

// ApplyRefinement returns a new context with the refinement's non-nil fields
// applied as a single accepted mutation (one version bump). A nil or empty
// refinement returns the receiver unchanged.
func (pc *ProjectContext) ApplyRefinement(rc *RefinedContext) *ProjectContext {
	if rc.IsEmpty() {
		return pc
	}
	next := pc.clone()
	if rc.Architecture != nil {
		next.Architecture = *rc.Architecture
	}
	if rc.Specifications != nil {
		next.Specifications = *rc.Specifications
	}
	if rc.FileStructure != nil {
		next.FileStructure = *rc.FileStructure
	}
	if rc.Tasks != nil {
		next.Tasks = cloneTasks(rc.Tasks)
	}
	return next
}

// TaskByID returns a pointer into the context's task list, or nil when the
// ID is unknown.
func (pc *ProjectContext) TaskByID(id string) *Task {
	for i := range pc.Tasks {
		if pc.Tasks[i].ID == id {
			return &pc.Tasks[i]
		}
	}
	return nil
}

// TasksByCategory returns all tasks of the given category, in list order.
func (pc *ProjectContext) TasksByCategory(category TaskCategory) []Task {
	var out []Task
	for _, t := range pc.Tasks {
		if t.Category == category {
			out = append(out, t)
		}
	}
	return out
}
