package clock

import "time"

type Clocker interface {
	Now() time.Time
}

// TimeClocker reads the system time in a fixed location.
type TimeClocker struct {
	loc *time.Location
}

// New returns a clock in loc, or in time.Local when loc is nil.
func New(loc *time.Location) *TimeClocker {
	if loc == nil {
		loc = time.Local
	}
	return &TimeClocker{loc: loc}
}

// FromName resolves an IANA zone name such as "Europe/London". An empty name
// means UTC.
func FromName(name string) (*TimeClocker, error) {
	if name == "" {
		return New(time.UTC), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	return New(loc), nil
}

func (c *TimeClocker) Now() time.Time {
	return time.Now().In(c.loc)
}
