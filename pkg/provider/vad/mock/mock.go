// Package mock provides a scripted test double for the vad.Classifier
// interface.
package mock

import (
	"sync"

	"github.com/hearthd/hearth/pkg/audio"
	"github.com/hearthd/hearth/pkg/provider/vad"
)

// Classifier is a scripted implementation of vad.Classifier. Classify returns
// the queued Classes in order; once exhausted it returns DefaultClass.
type Classifier struct {
	mu sync.Mutex

	// Classes is the scripted classification sequence, consumed front to back.
	Classes []vad.Class

	// DefaultClass is returned once Classes runs out.
	DefaultClass vad.Class

	// ClassifyErr, if non-nil, is returned by every Classify call.
	ClassifyErr error

	// ClassifyCount is the total number of Classify calls observed.
	ClassifyCount int

	// ResetCount is the number of times Reset was called.
	ResetCount int
}

// Classify implements vad.Classifier.
func (c *Classifier) Classify(_ audio.Frame) (vad.Class, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ClassifyCount++
	if c.ClassifyErr != nil {
		return vad.Silence, c.ClassifyErr
	}
	if len(c.Classes) == 0 {
		return c.DefaultClass, nil
	}
	v := c.Classes[0]
	c.Classes = c.Classes[1:]
	return v, nil
}

// Reset implements vad.Classifier.
func (c *Classifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ResetCount++
}

// Close implements vad.Classifier.
func (c *Classifier) Close() error { return nil }

// Ensure Classifier implements vad.Classifier at compile time.
var _ vad.Classifier = (*Classifier)(nil)
