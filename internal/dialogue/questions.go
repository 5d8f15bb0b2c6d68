package dialogue

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/hearthd/hearth/internal/intent"
)

// questionFor phrases the clarifying question for a missing slot. When the
// executor narrowed the options (e.g. only the street sides that actually
// have sweeping rules), the question enumerates them instead of asking
// open-endedly.
func questionFor(action intent.ActionKind, slot string, choices []string) string {
	switch slot {
	case intent.SlotEntity:
		if len(choices) > 0 {
			return fmt.Sprintf("Did you mean the %s?", joinOr(choices))
		}
		if action == intent.ActionActivateScene {
			return "Which scene do you mean?"
		}
		return "Which device do you mean?"

	case intent.SlotLocation:
		if action == intent.ActionParkingCheck {
			return "Where is your car?"
		}
		return "Where?"

	case intent.SlotSide:
		if len(choices) > 0 {
			return capitalize(joinOr(choices)) + "?"
		}
		return "Which side of the street?"

	case intent.SlotDuration:
		return "For how long?"

	default:
		return fmt.Sprintf("What should I use for the %s?", slot)
	}
}

// joinOr joins options as spoken alternatives: "north or south",
// "one, two, or three".
func joinOr(options []string) string {
	switch len(options) {
	case 0:
		return ""
	case 1:
		return options[0]
	case 2:
		return options[0] + " or " + options[1]
	default:
		return strings.Join(options[:len(options)-1], ", ") + ", or " + options[len(options)-1]
	}
}

// capitalize upper-cases the first rune.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
