package skill

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// OutcomeKind classifies the result of a dispatch.
type OutcomeKind int

const (
	// Matched means exactly one skill won and its handler ran.
	Matched OutcomeKind = iota

	// NoMatch means no skill recognised the transcript.
	NoMatch

	// Ambiguous means several skills tied on priority and matched span; the
	// assistant asks for clarification instead of guessing.
	Ambiguous
)

func (k OutcomeKind) String() string {
	switch k {
	case Matched:
		return "matched"
	case NoMatch:
		return "no_match"
	case Ambiguous:
		return "ambiguous"
	}
	return fmt.Sprintf("OutcomeKind(%d)", int(k))
}

// Outcome is the result of routing one transcript.
type Outcome struct {
	Kind OutcomeKind

	// SkillID is the winning skill for Matched outcomes.
	SkillID string

	// Response is the handler's spoken response for Matched outcomes with a
	// successful handler. Empty otherwise.
	Response string

	// Candidates lists the tied skill IDs for Ambiguous outcomes, sorted.
	Candidates []string

	// Err is a *HandlerError when the winning handler failed or panicked.
	// The turn still ends normally; the controller speaks an error response.
	Err error
}

// Router matches transcripts against the registry and runs the winning
// handler. Selection: every skill's matcher is evaluated, the highest
// priority wins, a priority tie goes to the longest matched span, and a
// remaining tie is surfaced as Ambiguous rather than resolved arbitrarily.
type Router struct {
	registry *Registry
	log      *slog.Logger
}

// NewRouter creates a Router over the given registry.
func NewRouter(registry *Registry, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{registry: registry, log: log}
}

// candidate is one matching skill with its tie-break keys.
type candidate struct {
	skill Skill
	span  int
}

// Dispatch routes a transcript and runs the winning handler. The text is
// normalized before matching. Dispatch never returns a raw handler error or
// propagates a panic; both are captured in Outcome.Err as a *HandlerError.
func (r *Router) Dispatch(ctx context.Context, text string) Outcome {
	winner, out := r.Resolve(text)
	if out.Kind != Matched {
		return out
	}
	return r.Invoke(ctx, winner, text)
}

// Resolve matches a transcript against the registry and selects the winning
// skill without running its handler. For Matched outcomes the returned skill
// is non-nil and Outcome.Response stays empty until Invoke runs it; callers
// that gate execution (the asleep session state) resolve first, then decide
// whether to invoke.
func (r *Router) Resolve(text string) (Skill, Outcome) {
	norm := Normalize(text)
	if norm == "" {
		return nil, Outcome{Kind: NoMatch}
	}

	var best []candidate
	bestPriority := 0
	for _, s := range r.registry.Skills() {
		matched, span := s.Match(norm)
		if !matched {
			continue
		}
		c := candidate{skill: s, span: span}
		switch {
		case len(best) == 0 || s.Priority() > bestPriority:
			best = []candidate{c}
			bestPriority = s.Priority()
		case s.Priority() == bestPriority:
			best = append(best, c)
		}
	}

	if len(best) == 0 {
		r.log.Debug("no skill matched", "text", norm)
		return nil, Outcome{Kind: NoMatch}
	}

	// Priority tie: keep only the longest matched span.
	if len(best) > 1 {
		longest := 0
		for _, c := range best {
			if c.span > longest {
				longest = c.span
			}
		}
		filtered := best[:0]
		for _, c := range best {
			if c.span == longest {
				filtered = append(filtered, c)
			}
		}
		best = filtered
	}

	if len(best) > 1 {
		ids := make([]string, len(best))
		for i, c := range best {
			ids[i] = c.skill.ID()
		}
		sort.Strings(ids)
		r.log.Info("ambiguous command", "text", norm, "candidates", ids)
		return nil, Outcome{Kind: Ambiguous, Candidates: ids}
	}

	winner := best[0].skill
	return winner, Outcome{Kind: Matched, SkillID: winner.ID()}
}

// Invoke runs the handler of a skill previously selected by Resolve and
// returns the completed outcome. Handler errors and panics are captured in
// Outcome.Err as a *HandlerError.
func (r *Router) Invoke(ctx context.Context, s Skill, text string) Outcome {
	norm := Normalize(text)
	response, err := r.handle(ctx, s, norm)
	if err != nil {
		r.log.Error("skill handler failed", "skill", s.ID(), "error", err)
		return Outcome{Kind: Matched, SkillID: s.ID(), Err: err}
	}

	r.log.Info("command dispatched", "skill", s.ID(), "text", norm)
	return Outcome{Kind: Matched, SkillID: s.ID(), Response: response}
}

// handle runs the skill handler with panic recovery. A panicking handler
// must not take down the session controller.
func (r *Router) handle(ctx context.Context, s Skill, text string) (response string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &HandlerError{SkillID: s.ID(), Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	response, herr := s.Handle(ctx, text)
	if herr != nil {
		return "", &HandlerError{SkillID: s.ID(), Err: herr}
	}
	return response, nil
}
