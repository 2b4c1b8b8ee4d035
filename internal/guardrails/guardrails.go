// Package guardrails screens caller transcriptions before they reach the LLM.
package guardrails

import (
	"context"
	"fmt"
	"unicode/utf8"
)

// Result holds the outcome of a check.
type Result struct {
	Allowed bool
	Flags   []string
	Score   float64
	Reason  string
}

// Guardrail is a single check applied to input text.
type Guardrail interface {
	Check(ctx context.Context, text string) (*Result, error)
	Name() string
}

// Pipeline runs guardrails in order and merges their results.
type Pipeline struct {
	guards []Guardrail
}

func NewPipeline(guards ...Guardrail) *Pipeline {
	return &Pipeline{guards: guards}
}

// DefaultPipeline rejects prompt injection attempts and overlong transcripts.
func DefaultPipeline(maxRunes int) *Pipeline {
	return NewPipeline(NewLengthGuard(maxRunes), NewInjectionDetector())
}

func (p *Pipeline) CheckInput(ctx context.Context, text string) (*Result, error) {
	combined := &Result{Allowed: true}
	for _, g := range p.guards {
		r, err := g.Check(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("guardrail %s: %w", g.Name(), err)
		}
		if !r.Allowed && combined.Allowed {
			combined.Allowed = false
			combined.Reason = fmt.Sprintf("blocked by %s: %s", g.Name(), r.Reason)
		}
		combined.Flags = append(combined.Flags, r.Flags...)
		combined.Score = max(combined.Score, r.Score)
	}
	return combined, nil
}

// LengthGuard rejects transcripts longer than a caller could plausibly say in one turn.
type LengthGuard struct {
	maxRunes int
}

func NewLengthGuard(maxRunes int) *LengthGuard {
	return &LengthGuard{maxRunes: maxRunes}
}

func (g *LengthGuard) Name() string { return "input_length" }

func (g *LengthGuard) Check(_ context.Context, text string) (*Result, error) {
	if n := utf8.RuneCountInString(text); n > g.maxRunes {
		return &Result{
			Reason: fmt.Sprintf("input exceeds %d characters", g.maxRunes),
			Flags:  []string{"input_too_long"},
		}, nil
	}
	return &Result{Allowed: true}, nil
}
