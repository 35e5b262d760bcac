package trigger

import (
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"time"
)

// ErrInvalidScheduleFormat is returned for cron expressions that cannot be
// parsed or that never fire.
var ErrInvalidScheduleFormat = errors.New("invalid schedule format")

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Next returns the first time matching the 5-field cron expression that is
// strictly after now.
func Next(expression string, now time.Time) (time.Time, error) {
	schedule, err := parser.Parse(expression)
	if err != nil {
		return time.Time{}, errors.Wrapf(ErrInvalidScheduleFormat, "%q: %v", expression, err)
	}

	next := schedule.Next(now)
	if next.IsZero() {
		return time.Time{}, errors.Wrapf(ErrInvalidScheduleFormat, "%q never fires", expression)
	}
	return next, nil
}

// Validate checks the expression without computing a time.
func Validate(expression string) error {
	_, err := Next(expression, time.Now())
	return err
}
