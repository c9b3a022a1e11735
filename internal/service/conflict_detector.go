package service

import (
	"context"

	"coachsync/internal/domain"
	"coachsync/internal/interval"

	"github.com/rs/zerolog"
)

// ConflictDetector checks a candidate slot against the events already on a remote calendar.
type ConflictDetector struct {
	calendar domain.CalendarClient
	logger   *zerolog.Logger
}

func NewConflictDetector(calendar domain.CalendarClient, logger *zerolog.Logger) *ConflictDetector {
	return &ConflictDetector{calendar: calendar, logger: orNop(logger)}
}

// HasConflict reports whether any remote event other than excludeEventID overlaps candidate.
// A remote outage is reported as no conflict.
func (d *ConflictDetector) HasConflict(ctx context.Context, target domain.CalendarTarget, candidate interval.Interval, excludeEventID string) (bool, error) {
	events, err := d.calendar.ListEvents(ctx, target, candidate.Start, candidate.End)
	if err != nil {
		return false, PolicyDetection.Apply(d.logger, err, "conflict check skipped, calendar unavailable")
	}

	for _, ev := range events {
		if excludeEventID != "" && ev.ID == excludeEventID {
			continue
		}
		if interval.Overlaps(candidate.Start, candidate.End, ev.Start, ev.End) {
			d.logger.Debug().Str("event_id", ev.ID).Time("start", candidate.Start).Msg("conflicting remote event")
			return true, nil
		}
	}
	return false, nil
}

func orNop(logger *zerolog.Logger) *zerolog.Logger {
	if logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return logger
}
