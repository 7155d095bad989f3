package severity

import (
	"fmt"
	"sync"
)

// Policy decides, per call, whether a record at a given severity is emitted.
//
// It holds the permanent level plus an optional counted override. The
// override is active while remaining > 0 and is consumed only by records
// that pass it, so a count of N means "N more emissions at the counted
// level", not "N more calls".
//
// Thread Safety:
//   - All methods are safe for concurrent use. Control commands arriving on
//     the transport goroutine and Log calls on application goroutines are
//     serialised by a single mutex.
type Policy struct {
	mu           sync.Mutex
	level        Severity
	countedLevel Severity
	remaining    uint32
}

// NewPolicy creates a policy with the given permanent level and no override.
func NewPolicy(level Severity) (*Policy, error) {
	if err := Check(level); err != nil {
		return nil, err
	}
	return &Policy{
		level:        level,
		countedLevel: level,
	}, nil
}

// SetLevel replaces the permanent level. An active counted override is left
// in place.
func (p *Policy) SetLevel(level Severity) error {
	if err := Check(level); err != nil {
		return err
	}

	p.mu.Lock()
	p.level = level
	p.mu.Unlock()
	return nil
}

// SetCountedLevel installs a counted override, replacing any previous one.
func (p *Policy) SetCountedLevel(level Severity, count uint32) error {
	if err := Check(level); err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: got 0", ErrInvalidCount)
	}

	p.mu.Lock()
	p.countedLevel = level
	p.remaining = count
	p.mu.Unlock()
	return nil
}

// CurrentLevel returns the threshold the next decision will use.
func (p *Policy) CurrentLevel() Severity {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.remaining > 0 {
		return p.countedLevel
	}
	return p.level
}

// Level returns the permanent level, ignoring any override.
func (p *Policy) Level() Severity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// Remaining returns how many emissions the counted override still covers.
func (p *Policy) Remaining() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remaining
}

// DecideEmit reports whether a record at sev passes. While an override is
// active a passing record decrements it; otherwise the call has no side
// effect.
func (p *Policy) DecideEmit(sev Severity) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.remaining > 0 {
		if !p.countedLevel.Allows(sev) {
			return false
		}
		p.remaining--
		return true
	}
	return p.level.Allows(sev)
}
