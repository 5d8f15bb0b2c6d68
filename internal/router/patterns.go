// Package router turns a transcript into a spoken response by trying three
// tiers in strict order: the deterministic pattern matcher, the intent
// resolver, and the language-model fallback. At most one tier produces the
// response, and while a follow-up is pending the transcript bypasses the
// first two tiers entirely and is fed to the dialogue manager as an answer.
package router

import (
	"fmt"
	"regexp"
	"time"
)

// Pattern is one deterministic text-pattern reply. No confidence scoring:
// either a regexp matches exactly or the tier is skipped.
type Pattern struct {
	Name    string
	Regexps []*regexp.Regexp
	Respond func(now time.Time) string
}

// PatternOption is a functional option for configuring a [PatternMatcher].
type PatternOption func(*PatternMatcher)

// WithPatterns replaces the built-in pattern table.
func WithPatterns(patterns []Pattern) PatternOption {
	return func(m *PatternMatcher) { m.patterns = patterns }
}

// WithNow overrides the time source, for tests.
func WithNow(now func() time.Time) PatternOption {
	return func(m *PatternMatcher) { m.now = now }
}

// PatternMatcher is the instant-reply tier. Matching is sub-millisecond and
// free of external calls, so it always runs first.
type PatternMatcher struct {
	patterns []Pattern
	now      func() time.Time
}

// NewPatternMatcher returns a matcher with the built-in pattern table unless
// overridden.
func NewPatternMatcher(opts ...PatternOption) *PatternMatcher {
	m := &PatternMatcher{
		patterns: defaultPatterns(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Match returns the canned or templated reply for the first matching
// pattern, or false when no pattern fires.
func (m *PatternMatcher) Match(text string) (string, bool) {
	for _, p := range m.patterns {
		for _, re := range p.Regexps {
			if re.MatchString(text) {
				return p.Respond(m.now()), true
			}
		}
	}
	return "", false
}

func defaultPatterns() []Pattern {
	return []Pattern{
		{
			Name: "time",
			Regexps: []*regexp.Regexp{
				regexp.MustCompile(`(?i)^what time is it\??$`),
				regexp.MustCompile(`(?i)^what(?:'s| is) the time\??$`),
			},
			Respond: func(now time.Time) string {
				return fmt.Sprintf("It's %s.", now.Format("3:04 PM"))
			},
		},
		{
			Name: "date",
			Regexps: []*regexp.Regexp{
				regexp.MustCompile(`(?i)^what day is it\??$`),
				regexp.MustCompile(`(?i)^what(?:'s| is) (?:today's|the) date\??$`),
			},
			Respond: func(now time.Time) string {
				return fmt.Sprintf("It's %s.", now.Format("Monday, January 2"))
			},
		},
		{
			Name: "greeting",
			Regexps: []*regexp.Regexp{
				regexp.MustCompile(`(?i)^(?:hello|hi|hey)(?: there)?[.!]?$`),
			},
			Respond: func(time.Time) string { return "Hi there." },
		},
		{
			Name: "thanks",
			Regexps: []*regexp.Regexp{
				regexp.MustCompile(`(?i)^thanks?(?: you)?[.!]?$`),
				regexp.MustCompile(`(?i)^thank you[.!]?$`),
			},
			Respond: func(time.Time) string { return "You're welcome." },
		},
		{
			Name: "presence",
			Regexps: []*regexp.Regexp{
				regexp.MustCompile(`(?i)^are you (?:there|listening)\??$`),
			},
			Respond: func(time.Time) string { return "I'm here." },
		},
	}
}
