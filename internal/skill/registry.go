package skill

import (
	"fmt"
	"sort"
	"sync"
)

// DuplicateSkillError is returned by Register when a skill ID is already
// taken. Skill IDs are the unit of identity in logs and config, so silently
// replacing one would hide a wiring bug.
type DuplicateSkillError struct {
	ID string
}

func (e *DuplicateSkillError) Error() string {
	return fmt.Sprintf("skill %q is already registered", e.ID)
}

// Registry holds the set of registered skills. Registration happens during
// startup; lookups run for every dispatched turn. All methods are safe for
// concurrent use.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]Skill
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{skills: make(map[string]Skill)}
}

// Register adds a skill. Returns a *DuplicateSkillError if the ID is taken.
func (r *Registry) Register(s Skill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := s.ID()
	if _, exists := r.skills[id]; exists {
		return &DuplicateSkillError{ID: id}
	}
	r.skills[id] = s
	return nil
}

// Get returns the skill with the given ID, or nil.
func (r *Registry) Get(id string) Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.skills[id]
}

// Skills returns all registered skills sorted by ID for deterministic
// iteration.
func (r *Registry) Skills() []Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Skill, 0, len(r.skills))
	for _, s := range r.skills {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Len returns the number of registered skills.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.skills)
}
