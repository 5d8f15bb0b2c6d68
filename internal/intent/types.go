// Package intent classifies transcripts into structured actions and resolves
// referenced entity names against the device registry.
//
// Classification is driven by an ordered, declarative rule table (see
// [DefaultRules]): each rule names an action kind, a set of patterns, and the
// slots the action requires. Entity resolution walks the registry with a
// three-stage match (exact name, alias, fuzzy similarity) and produces a
// confidence score per candidate.
//
// A resolved [Candidate] is never rejected for low confidence alone: slots
// that could not be resolved confidently are recorded in MissingRequired so
// the dialogue layer can ask a clarifying question instead of guessing.
package intent

// ActionKind enumerates the structured actions the resolver can classify.
type ActionKind string

const (
	// ActionTurnOn switches a device or group on.
	ActionTurnOn ActionKind = "turn_on"

	// ActionTurnOff switches a device or group off.
	ActionTurnOff ActionKind = "turn_off"

	// ActionActivateScene triggers a named scene.
	ActionActivateScene ActionKind = "activate_scene"

	// ActionSetTimer starts a countdown timer.
	ActionSetTimer ActionKind = "set_timer"

	// ActionParkingCheck looks up the next street-sweeping move deadline
	// for the user's parked car.
	ActionParkingCheck ActionKind = "parking_check"

	// ActionDeviceQuery asks for the current state of a device.
	ActionDeviceQuery ActionKind = "device_query"
)

// Well-known slot names used by the rule table.
const (
	SlotEntity   = "entity"
	SlotDuration = "duration"
	SlotLocation = "location"
	SlotSide     = "side"
)

// MatchMethod describes how an entity name was matched against the registry.
type MatchMethod string

const (
	MatchExact MatchMethod = "exact"
	MatchAlias MatchMethod = "alias"
	MatchFuzzy MatchMethod = "fuzzy"
)

// Alternative is a non-winning entity candidate, retained for diagnostics.
type Alternative struct {
	DeviceID   string
	Name       string
	Confidence float64
}

// EntityReference is a resolved entity: the name as spoken, the registry
// identifier it resolved to, and how confident the resolution is.
type EntityReference struct {
	// Spoken is the entity name as extracted from the transcript.
	Spoken string

	// DeviceID is the registry identifier of the winning candidate.
	DeviceID string

	// Name is the canonical registry name of the winning candidate.
	Name string

	// Confidence is the match confidence in [0,1]: exact matches score 1.0,
	// alias matches 0.9, fuzzy matches scale with string similarity and are
	// capped below 0.9.
	Confidence float64

	// Method records which matching stage produced the winner.
	Method MatchMethod

	// Alternatives holds the other candidates considered, best first.
	Alternatives []Alternative
}

// Candidate is a classified intent: an action kind, its resolved target (if
// any), extracted slot values, and the names of required slots that are still
// missing or unresolved.
//
// Confidence is the minimum of the action-classification confidence and the
// entity-resolution confidence. Pattern-table classification is deterministic
// and scores 1.0, so in practice Confidence equals the entity confidence when
// a target is present and 1.0 otherwise.
type Candidate struct {
	Action          ActionKind
	Target          *EntityReference
	Slots           map[string]string
	Confidence      float64
	MissingRequired []string
}

// Resolved reports whether the candidate has everything it needs to execute.
func (c Candidate) Resolved() bool {
	return len(c.MissingRequired) == 0
}

// Missing reports whether the named slot is in MissingRequired.
func (c Candidate) Missing(slot string) bool {
	for _, m := range c.MissingRequired {
		if m == slot {
			return true
		}
	}
	return false
}

// FillSlot returns a copy of the candidate with the named slot set and
// removed from MissingRequired. The receiver is not modified.
func (c Candidate) FillSlot(slot, value string) Candidate {
	out := c
	out.Slots = make(map[string]string, len(c.Slots)+1)
	for k, v := range c.Slots {
		out.Slots[k] = v
	}
	out.Slots[slot] = value

	out.MissingRequired = make([]string, 0, len(c.MissingRequired))
	for _, m := range c.MissingRequired {
		if m != slot {
			out.MissingRequired = append(out.MissingRequired, m)
		}
	}
	return out
}
