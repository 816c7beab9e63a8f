package application

import (
	"strings"
	"time"
	_ "time/tzdata" // zone names validate the same on hosts without zoneinfo

	"github.com/dfryer1193/newsroom/blog/domain"
)

// ScheduleValidator checks a requested publication instant against the
// current time. It holds no state; now is supplied by the caller.
type ScheduleValidator struct{}

func NewScheduleValidator() *ScheduleValidator {
	return &ScheduleValidator{}
}

// Validate applies the rules in order and reports the first failure.
func (v *ScheduleValidator) Validate(scheduledAt *time.Time, timezone string, now time.Time) error {
	if scheduledAt == nil || scheduledAt.IsZero() {
		return domain.NewScheduleError(domain.ReasonMissingOrInvalidInstant, "scheduled instant is required")
	}

	if !scheduledAt.After(now) {
		return domain.NewScheduleError(domain.ReasonNotInFuture, "scheduled instant must be in the future")
	}

	if scheduledAt.After(now.AddDate(1, 0, 0)) {
		return domain.NewScheduleError(domain.ReasonTooFarInFuture, "scheduled instant must be within one year")
	}

	if timezone != "" {
		if _, err := time.LoadLocation(timezone); err != nil {
			return domain.NewScheduleError(domain.ReasonInvalidTimezone, "unknown time zone "+timezone)
		}
	}

	return nil
}

// ParseInstant parses an RFC 3339 timestamp. An empty or malformed value is a
// schedule error, not a validation error.
func ParseInstant(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, domain.NewScheduleError(domain.ReasonMissingOrInvalidInstant, "scheduled instant is required")
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, domain.NewScheduleError(domain.ReasonMissingOrInvalidInstant, "scheduled instant must be RFC 3339")
	}

	return t.UTC(), nil
}
