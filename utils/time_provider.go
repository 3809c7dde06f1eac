package utils

import (
	"time"
)

// TimeProvider is an interface for components that need wall-clock time and
// want to be unit testable.
type TimeProvider interface {
	// Now returns the current time in UTC
	Now() time.Time
}

// SystemTimeProvider is the default implementation of TimeProvider
type SystemTimeProvider struct{}

// NewSystemTimeProvider creates the default provider
func NewSystemTimeProvider() SystemTimeProvider {
	return SystemTimeProvider{}
}

// Now returns the current time
func (SystemTimeProvider) Now() time.Time {
	return time.Now().UTC()
}

// FixedTimeProvider always returns the same time, which is useful for testing
type FixedTimeProvider struct {
	FixedTime time.Time
}

// Now returns the fixed time
func (p FixedTimeProvider) Now() time.Time {
	return p.FixedTime
}
