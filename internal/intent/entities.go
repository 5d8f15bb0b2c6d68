package intent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/hearthd/hearth/internal/homegraph"
)

// ErrEntityNotFound is returned by [EntityIndex.Resolve] when no registry
// entry matches the spoken name at any confidence.
var ErrEntityNotFound = errors.New("intent: no matching entity")

const (
	exactConfidence = 1.0
	aliasConfidence = 0.9

	// fuzzyCap keeps fuzzy confidences strictly below the alias tier so a
	// near-perfect string similarity never outranks an explicit alias.
	fuzzyCap = 0.89

	// Jaro-Winkler acceptance thresholds. Phonetically-overlapping candidates
	// get a lower bar; pure string similarity needs to be much closer.
	phoneticJWThreshold = 0.70
	fuzzyJWThreshold    = 0.85
)

// EntityIndex resolves spoken entity names against the device registry using
// exact name match, alias lookup, and Double Metaphone + Jaro-Winkler fuzzy
// matching, in that order of confidence.
//
// The index queries the store on every Resolve call rather than caching, so
// registry updates are visible immediately.
type EntityIndex struct {
	store homegraph.Store
}

// NewEntityIndex returns an index over the given registry store.
func NewEntityIndex(store homegraph.Store) *EntityIndex {
	return &EntityIndex{store: store}
}

// Resolve matches spoken against all registry entries and returns the
// highest-confidence candidate, with the remaining candidates retained as
// alternatives. Ties on confidence are broken deterministically: the shorter
// canonical name wins, then lexicographic order.
//
// Returns [ErrEntityNotFound] when nothing matches at any confidence.
func (x *EntityIndex) Resolve(ctx context.Context, spoken string) (EntityReference, error) {
	spokenLower := strings.ToLower(strings.TrimSpace(spoken))
	if spokenLower == "" {
		return EntityReference{}, ErrEntityNotFound
	}

	devices, err := x.store.List(ctx, homegraph.ListOptions{})
	if err != nil {
		return EntityReference{}, fmt.Errorf("intent: list devices: %w", err)
	}

	type scored struct {
		device     homegraph.Device
		confidence float64
		method     MatchMethod
	}
	var candidates []scored

	spokenTokens := strings.Fields(spokenLower)
	spokenCodes := phoneticCodes(spokenTokens)

	for _, d := range devices {
		nameLower := strings.ToLower(d.Name)

		if nameLower == spokenLower {
			candidates = append(candidates, scored{d, exactConfidence, MatchExact})
			continue
		}

		aliasHit := false
		for _, a := range d.Aliases {
			if strings.ToLower(a) == spokenLower {
				candidates = append(candidates, scored{d, aliasConfidence, MatchAlias})
				aliasHit = true
				break
			}
		}
		if aliasHit {
			continue
		}

		if conf, ok := x.fuzzyScore(spokenLower, spokenTokens, spokenCodes, d); ok {
			candidates = append(candidates, scored{d, conf, MatchFuzzy})
		}
	}

	if len(candidates) == 0 {
		return EntityReference{}, ErrEntityNotFound
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].confidence != candidates[j].confidence {
			return candidates[i].confidence > candidates[j].confidence
		}
		ni, nj := candidates[i].device.Name, candidates[j].device.Name
		if len(ni) != len(nj) {
			return len(ni) < len(nj)
		}
		return ni < nj
	})

	winner := candidates[0]
	ref := EntityReference{
		Spoken:     spoken,
		DeviceID:   winner.device.ID,
		Name:       winner.device.Name,
		Confidence: winner.confidence,
		Method:     winner.method,
	}
	for _, c := range candidates[1:] {
		ref.Alternatives = append(ref.Alternatives, Alternative{
			DeviceID:   c.device.ID,
			Name:       c.device.Name,
			Confidence: c.confidence,
		})
	}
	return ref, nil
}

// fuzzyScore computes the fuzzy confidence of spoken against the device's
// canonical name and aliases. A candidate qualifies when its best
// Jaro-Winkler score clears the phonetic threshold (if any Double Metaphone
// code overlaps) or the stricter pure-similarity threshold otherwise.
func (x *EntityIndex) fuzzyScore(spokenLower string, spokenTokens []string, spokenCodes map[string]struct{}, d homegraph.Device) (float64, bool) {
	names := append([]string{d.Name}, d.Aliases...)

	var best float64
	for _, n := range names {
		nLower := strings.ToLower(strings.TrimSpace(n))
		if nLower == "" {
			continue
		}
		nTokens := strings.Fields(nLower)

		jw := bestJaroWinkler(spokenTokens, nTokens, spokenLower, nLower)

		threshold := fuzzyJWThreshold
		if codesOverlap(spokenCodes, phoneticCodes(nTokens)) {
			threshold = phoneticJWThreshold
		}
		if jw >= threshold && jw > best {
			best = jw
		}
	}

	if best == 0 {
		return 0, false
	}
	if best > fuzzyCap {
		best = fuzzyCap
	}
	return best, true
}

// phoneticCodes returns the union of Double Metaphone codes for the tokens.
func phoneticCodes(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap reports whether the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJaroWinkler computes the highest Jaro-Winkler similarity between the
// input and the candidate name using three strategies: full strings,
// space-stripped strings, and best pairwise token score. The last handles the
// common case of one spoken word matching one word of a multi-word name.
func bestJaroWinkler(inputTokens, nameTokens []string, inputFull, nameFull string) float64 {
	score := matchr.JaroWinkler(inputFull, nameFull, false)

	if len(inputTokens) > 1 || len(nameTokens) > 1 {
		concat1 := strings.Join(inputTokens, "")
		concat2 := strings.Join(nameTokens, "")
		if s := matchr.JaroWinkler(concat1, concat2, false); s > score {
			score = s
		}
	}

	for _, it := range inputTokens {
		for _, nt := range nameTokens {
			if s := matchr.JaroWinkler(it, nt, false); s > score {
				score = s
			}
		}
	}

	return score
}
