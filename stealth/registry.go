package stealth

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/exp/slices"
)

// Patch is the data-model Patch entity: a named, immutable snippet owned
// by the process-wide registry.
type Patch struct {
	Name         string
	Script       string
	Priority     int
	Dependencies []string
	Description  string

	// Critical, when non-empty, is a JS expression evaluated after
	// injection whose truthiness verifies the patch actually took
	// effect (e.g. "navigator.webdriver === false").
	Critical string
}

// Registry is a process-wide, initialization-time-populated table of
// Patches. register is the only writer and runs at startup as each patch
// module loads; readers consult it during page creation only.
type Registry struct {
	mu      sync.RWMutex
	patches map[string]Patch
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{patches: make(map[string]Patch)}
}

// Register adds or replaces a patch. Registering the same name twice
// means last write wins; the dependency graph remains acyclic as long as
// the final set of patches is acyclic (checked at ordering time, not at
// register time).
func (r *Registry) Register(p Patch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patches[p.Name] = p
}

func (r *Registry) get(name string) (Patch, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patches[name]
	return p, ok
}

// selectNames returns the patch names belonging to level.
func (r *Registry) selectNames(level Level) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch level {
	case LevelMinimum:
		var out []string
		for _, name := range []string{"webdriver_basic", "chrome_runtime_basic", "user_agent_basic"} {
			if _, ok := r.patches[name]; ok {
				out = append(out, name)
			}
		}
		return out
	case LevelMaximum:
		out := make([]string, 0, len(r.patches))
		for name := range r.patches {
			out = append(out, name)
		}
		return out
	default: // LevelBalanced
		out := make([]string, 0, len(r.patches))
		for name := range r.patches {
			if !strings.HasPrefix(name, "experimental_") {
				out = append(out, name)
			}
		}
		return out
	}
}

// OrderedPatches returns the patches selected for level, sorted by
// priority ascending and then resolved via depth-first dependency
// traversal: a patch's dependencies precede it, each patch appears at
// most once, a cycle is an error, and a missing dependency is skipped
// with no error (the registry cannot warn here without a logger; callers
// that want the warning should check Dependencies against Patches
// themselves, e.g. in a startup self-check test).
func (r *Registry) OrderedPatches(level Level) ([]Patch, error) {
	names := r.selectNames(level)

	selected := make(map[string]Patch, len(names))
	for _, n := range names {
		if p, ok := r.get(n); ok {
			selected[n] = p
		}
	}

	slices.SortFunc(names, func(a, b string) int {
		pa, pb := selected[a].Priority, selected[b].Priority
		switch {
		case pa < pb:
			return -1
		case pa > pb:
			return 1
		default:
			return strings.Compare(a, b)
		}
	})

	var (
		ordered  []Patch
		resolved = make(map[string]bool)
		visiting = make(map[string]bool)
	)

	var visit func(name string) error
	visit = func(name string) error {
		if resolved[name] {
			return nil
		}
		p, ok := selected[name]
		if !ok {
			// Not in the selected set (e.g. a dependency outside this
			// level); skip, per spec: missing dependency is a warning,
			// not an error.
			return nil
		}
		if visiting[name] {
			return fmt.Errorf("stealth: %w: %s", errPatchCycle, name)
		}
		visiting[name] = true
		for _, dep := range p.Dependencies {
			if err := visit(dep); err != nil {
				return err
			}
		}
		visiting[name] = false
		resolved[name] = true
		ordered = append(ordered, p)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}

	return ordered, nil
}

var errPatchCycle = fmt.Errorf("patch dependency cycle")
