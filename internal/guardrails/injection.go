package guardrails

import (
	"context"
	"strings"
)

const blockThreshold = 0.7

type pattern struct {
	text   string
	weight float64
	flag   string
}

// Callers speak German or English; both are covered.
var injectionPatterns = []pattern{
	{"ignore previous instructions", 0.9, "override_attempt"},
	{"ignore all previous", 0.9, "override_attempt"},
	{"disregard your instructions", 0.9, "override_attempt"},
	{"forget your instructions", 0.85, "override_attempt"},
	{"ignoriere alle vorherigen", 0.9, "override_attempt"},
	{"ignoriere deine anweisungen", 0.9, "override_attempt"},
	{"vergiss deine anweisungen", 0.85, "override_attempt"},
	{"you are now", 0.7, "role_hijack"},
	{"pretend you are", 0.7, "role_hijack"},
	{"du bist jetzt", 0.7, "role_hijack"},
	{"tu so als ob du", 0.7, "role_hijack"},
	{"system prompt", 0.8, "system_leak"},
	{"systemprompt", 0.8, "system_leak"},
	{"reveal your instructions", 0.8, "system_leak"},
	{"zeig mir deine anweisungen", 0.8, "system_leak"},
	{"jailbreak", 0.9, "jailbreak"},
	{"do anything now", 0.85, "jailbreak"},
	{"<system>", 0.8, "tag_injection"},
	{"</system>", 0.8, "tag_injection"},
	{"[system]", 0.7, "tag_injection"},
}

// InjectionDetector flags attempts to override the agent's instructions.
type InjectionDetector struct {
	patterns []pattern
}

func NewInjectionDetector() *InjectionDetector {
	return &InjectionDetector{patterns: injectionPatterns}
}

func (d *InjectionDetector) Name() string { return "prompt_injection" }

func (d *InjectionDetector) Check(_ context.Context, text string) (*Result, error) {
	lower := strings.ToLower(text)
	var (
		flags []string
		score float64
	)
	for _, p := range d.patterns {
		if !strings.Contains(lower, p.text) {
			continue
		}
		score = max(score, p.weight)
		flags = append(flags, p.flag)
	}

	if score >= blockThreshold {
		return &Result{Reason: "potential prompt injection", Flags: flags, Score: score}, nil
	}
	return &Result{Allowed: true, Flags: flags, Score: score}, nil
}
