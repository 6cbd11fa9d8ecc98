package contract

import (
	"time"

	"github.com/google/uuid"
)

// Options carries the id and time sources a backend stamps records with.
type Options struct {
	Now   func() time.Time
	NewId func() string
}

type Option func(*Options)

func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Now = now
	}
}

func WithIdGenerator(newId func() string) Option {
	return func(o *Options) {
		o.NewId = newId
	}
}

func ApplyOptions(opts ...Option) Options {
	o := Options{
		Now:   time.Now,
		NewId: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NextUpdatedAt returns now, or the instant right after prev when the clock
// has not moved past it.
func NextUpdatedAt(prev, now time.Time) time.Time {
	now = now.UTC()
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Nanosecond)
}
