package intent

import "regexp"

// Rule binds an action kind to the patterns that trigger it and the slots the
// action requires. Patterns use named capture groups to extract slot values;
// a group named "entity" marks the text to resolve against the registry.
type Rule struct {
	Action   ActionKind
	Patterns []*regexp.Regexp

	// Required lists the slots the action cannot execute without. A required
	// slot not populated by any capture group goes straight into the
	// candidate's MissingRequired.
	Required []string
}

// DefaultRules returns the built-in rule table. Rules are evaluated in
// declaration order and the first matching pattern wins, so more specific
// phrasings are declared before more general ones — "set a timer" must come
// before the generic device-query rules or "set" phrasings would shadow it.
func DefaultRules() []Rule {
	return []Rule{
		{
			Action: ActionSetTimer,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)^set (?:a |the )?timer for (?P<duration>.+?)\.?$`),
				regexp.MustCompile(`(?i)^(?:set|start) (?:a |the )?timer\.?$`),
				regexp.MustCompile(`(?i)^remind me in (?P<duration>.+?)\.?$`),
			},
			Required: []string{SlotDuration},
		},
		{
			Action: ActionParkingCheck,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)\bwhen (?:do|will) i (?:need|have) to move (?:my |the )?car\b`),
				regexp.MustCompile(`(?i)\bstreet (?:sweeping|cleaning)\b`),
				regexp.MustCompile(`(?i)\bmove (?:my |the )?car\b`),
			},
			Required: []string{SlotLocation, SlotSide},
		},
		{
			Action: ActionTurnOn,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)^(?:turn|switch) on (?:the )?(?P<entity>.+?)\.?$`),
				regexp.MustCompile(`(?i)^(?:turn|switch) (?:the )?(?P<entity>.+?) on\.?$`),
			},
			Required: []string{SlotEntity},
		},
		{
			Action: ActionTurnOff,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)^(?:turn|switch|shut) off (?:the )?(?P<entity>.+?)\.?$`),
				regexp.MustCompile(`(?i)^(?:turn|switch|shut) (?:the )?(?P<entity>.+?) off\.?$`),
			},
			Required: []string{SlotEntity},
		},
		{
			Action: ActionActivateScene,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)^(?:activate|start|run) (?:the )?(?P<entity>.+?)(?: scene)?\.?$`),
			},
			Required: []string{SlotEntity},
		},
		{
			Action: ActionDeviceQuery,
			Patterns: []*regexp.Regexp{
				regexp.MustCompile(`(?i)^is (?:the )?(?P<entity>.+?) (?:on|off)\??$`),
				regexp.MustCompile(`(?i)^what(?:'s| is) (?:the )?(?P<entity>.+?) (?:set to|doing)\??$`),
			},
			Required: []string{SlotEntity},
		},
	}
}

// matchSlots applies the pattern to text and returns the named capture groups
// as a slot map, or nil if the pattern does not match. Empty captures are
// omitted so an optional group never populates a slot with "".
func matchSlots(p *regexp.Regexp, text string) map[string]string {
	m := p.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	slots := make(map[string]string)
	for i, name := range p.SubexpNames() {
		if name == "" || i >= len(m) || m[i] == "" {
			continue
		}
		slots[name] = m[i]
	}
	return slots
}
