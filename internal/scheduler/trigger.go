package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Trigger computes the next firing time of a job.
type Trigger interface {
	// Next returns the first firing strictly after t.
	Next(t time.Time) time.Time
	String() string
}

type periodTrigger struct {
	period time.Duration
}

// Every fires one full period after the job is started and then once per
// period, counted from the end of the previous run.
func Every(period time.Duration) Trigger {
	return periodTrigger{period: period}
}

func (p periodTrigger) Next(t time.Time) time.Time {
	if p.period <= 0 {
		return time.Time{}
	}
	return t.Add(p.period)
}

func (p periodTrigger) String() string {
	return "every " + p.period.String()
}

type dailyTrigger struct {
	schedule     cron.Schedule
	loc          *time.Location
	hour, minute int
}

// Daily fires at the next hour:minute wall-clock time in loc, then every day.
// Across DST changes the wall-clock time is kept, not the 24h distance.
func Daily(hour, minute int, loc *time.Location) (Trigger, error) {
	if loc == nil {
		loc = time.Local
	}
	schedule, err := cron.ParseStandard(fmt.Sprintf("%d %d * * *", minute, hour))
	if err != nil {
		return nil, fmt.Errorf("daily trigger %02d:%02d: %w", hour, minute, err)
	}
	return dailyTrigger{schedule: schedule, loc: loc, hour: hour, minute: minute}, nil
}

func (d dailyTrigger) Next(t time.Time) time.Time {
	// a schedule parsed without CRON_TZ follows the location of its argument
	return d.schedule.Next(t.In(d.loc))
}

func (d dailyTrigger) String() string {
	return fmt.Sprintf("daily at %02d:%02d %s", d.hour, d.minute, d.loc)
}
