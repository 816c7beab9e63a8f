package application

import (
	"time"

	"github.com/dfryer1193/newsroom/blog/domain"
)

var _ domain.Clock = SystemClock{}

// SystemClock reads the wall clock in UTC, truncated to the millisecond
// precision the store keeps.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
