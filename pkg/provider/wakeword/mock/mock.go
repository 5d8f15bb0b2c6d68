// Package mock provides a scripted test double for the wakeword.Scorer
// interface.
package mock

import (
	"sync"

	"github.com/hearthd/hearth/pkg/audio"
	"github.com/hearthd/hearth/pkg/provider/wakeword"
)

// Scorer is a scripted implementation of wakeword.Scorer. Score returns the
// queued Scores in order; once exhausted it returns DefaultScore.
type Scorer struct {
	mu sync.Mutex

	// Scores is the scripted score sequence, consumed front to back.
	Scores []float64

	// DefaultScore is returned once Scores runs out.
	DefaultScore float64

	// ScoreErr, if non-nil, is returned by every Score call.
	ScoreErr error

	// ScoreCount is the total number of Score calls observed.
	ScoreCount int

	// ResetCount is the number of times Reset was called.
	ResetCount int
}

// Score implements wakeword.Scorer.
func (s *Scorer) Score(_ audio.Frame) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ScoreCount++
	if s.ScoreErr != nil {
		return 0, s.ScoreErr
	}
	if len(s.Scores) == 0 {
		return s.DefaultScore, nil
	}
	v := s.Scores[0]
	s.Scores = s.Scores[1:]
	return v, nil
}

// Reset implements wakeword.Scorer.
func (s *Scorer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ResetCount++
}

// Close implements wakeword.Scorer.
func (s *Scorer) Close() error { return nil }

// Ensure Scorer implements wakeword.Scorer at compile time.
var _ wakeword.Scorer = (*Scorer)(nil)
