package google

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"coachsync/internal/domain"
	"coachsync/internal/metrics"
	"coachsync/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	dateLayout   = "2006-01-02"
	listPageSize = 250
)

// Options configure the Calendar client.
type Options struct {
	Endpoint          string
	RequestsPerSecond float64
	Burst             int
	RequestTimeout    time.Duration
	Retry             RetryPolicy
	// ClientOptions are appended to every service, after the credential.
	ClientOptions []option.ClientOption
}

// CalendarClient talks to Google Calendar v3. Every call receives the target
// calendar and credential; services are cached per credential.
type CalendarClient struct {
	opts     Options
	limiters sync.Map // calendar id -> *rate.Limiter
	services sync.Map // oauth2.TokenSource -> *calendar.Service
	logger   *zerolog.Logger
}

var _ domain.CalendarClient = (*CalendarClient)(nil)

func NewCalendarClient(opts Options, logger *zerolog.Logger) *CalendarClient {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	return &CalendarClient{opts: opts, logger: logger}
}

func (c *CalendarClient) CreateEvent(ctx context.Context, target domain.CalendarTarget, draft models.EventDraft) (string, error) {
	var id string
	// never retried: a second insert after a lost response would duplicate the event
	err := c.call(ctx, "create", target, false, func(ctx context.Context, srv *calendar.Service) error {
		created, err := srv.Events.Insert(calendarID(target), toEvent(draft)).SendUpdates("none").Context(ctx).Do()
		if err != nil {
			return err
		}
		id = created.Id
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (c *CalendarClient) UpdateEvent(ctx context.Context, target domain.CalendarTarget, eventID string, draft models.EventDraft) error {
	return c.call(ctx, "update", target, true, func(ctx context.Context, srv *calendar.Service) error {
		_, err := srv.Events.Patch(calendarID(target), eventID, toEvent(draft)).SendUpdates("none").Context(ctx).Do()
		return err
	})
}

// DeleteEvent removes the event. An event that is already gone counts as deleted.
func (c *CalendarClient) DeleteEvent(ctx context.Context, target domain.CalendarTarget, eventID string) error {
	err := c.call(ctx, "delete", target, true, func(ctx context.Context, srv *calendar.Service) error {
		return srv.Events.Delete(calendarID(target), eventID).SendUpdates("none").Context(ctx).Do()
	})
	if errors.Is(err, domain.ErrRemoteNotFound) {
		return nil
	}
	return err
}

// ListEvents returns the non-cancelled events intersecting [from, to).
func (c *CalendarClient) ListEvents(ctx context.Context, target domain.CalendarTarget, from, to time.Time) ([]models.RemoteEvent, error) {
	var events []models.RemoteEvent
	err := c.call(ctx, "list", target, true, func(ctx context.Context, srv *calendar.Service) error {
		// a retried listing starts over
		events = make([]models.RemoteEvent, 0)
		return srv.Events.List(calendarID(target)).
			TimeMin(from.Format(time.RFC3339)).
			TimeMax(to.Format(time.RFC3339)).
			SingleEvents(true).
			ShowDeleted(false).
			MaxResults(listPageSize).
			Pages(ctx, func(page *calendar.Events) error {
				loc := loadLocation(page.TimeZone)
				for _, item := range page.Items {
					ev, ok := c.toRemote(item, loc)
					if ok {
						events = append(events, ev)
					}
				}
				return nil
			})
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// call wraps one logical operation with rate limiting, per-attempt timeout,
// error classification, retries and metrics.
func (c *CalendarClient) call(ctx context.Context, op string, target domain.CalendarTarget, retry bool, fn func(context.Context, *calendar.Service) error) error {
	srv, err := c.service(target)
	if err != nil {
		metrics.IncCalendarCall(op, outcomeLabel(err))
		return err
	}

	attempt := func(ctx context.Context) error {
		if err := c.limiter(calendarID(target)).Wait(ctx); err != nil {
			return fmt.Errorf("calendar %s: rate limit wait: %w: %w", op, domain.ErrRemoteUnavailable, err)
		}
		if c.opts.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.opts.RequestTimeout)
			defer cancel()
		}
		return classify(op, fn(ctx, srv))
	}

	if retry {
		err = c.opts.Retry.Do(ctx, attempt)
	} else {
		err = attempt(ctx)
	}

	metrics.IncCalendarCall(op, outcomeLabel(err))
	if err != nil {
		c.logger.Debug().Err(err).Str("operation", op).Str("calendar_id", calendarID(target)).Msg("calendar call failed")
	}
	return err
}

func (c *CalendarClient) service(target domain.CalendarTarget) (*calendar.Service, error) {
	if target.Credential == nil {
		return nil, fmt.Errorf("calendar: no credential for %q: %w", calendarID(target), domain.ErrRemoteRejected)
	}
	// a non-comparable credential cannot be a map key and gets a fresh service
	cacheable := reflect.TypeOf(target.Credential).Comparable()
	if cacheable {
		if v, ok := c.services.Load(target.Credential); ok {
			return v.(*calendar.Service), nil
		}
	}

	opts := []option.ClientOption{option.WithTokenSource(target.Credential)}
	if c.opts.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.opts.Endpoint))
	}
	opts = append(opts, c.opts.ClientOptions...)

	// the service outlives the request context; calls carry their own
	srv, err := calendar.NewService(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar: create service: %w: %w", domain.ErrRemoteRejected, err)
	}
	if cacheable {
		v, _ := c.services.LoadOrStore(target.Credential, srv)
		return v.(*calendar.Service), nil
	}
	return srv, nil
}

func (c *CalendarClient) limiter(calID string) *rate.Limiter {
	if v, ok := c.limiters.Load(calID); ok {
		return v.(*rate.Limiter)
	}
	limit := rate.Inf
	if c.opts.RequestsPerSecond > 0 {
		limit = rate.Limit(c.opts.RequestsPerSecond)
	}
	v, _ := c.limiters.LoadOrStore(calID, rate.NewLimiter(limit, c.opts.Burst))
	return v.(*rate.Limiter)
}

func (c *CalendarClient) toRemote(item *calendar.Event, loc *time.Location) (models.RemoteEvent, bool) {
	if item == nil || item.Status == "cancelled" {
		return models.RemoteEvent{}, false
	}
	start, err := parseEventTime(item.Start, loc)
	if err != nil {
		c.logger.Warn().Err(err).Str("event_id", item.Id).Msg("skipping event with unreadable start")
		return models.RemoteEvent{}, false
	}
	end, err := parseEventTime(item.End, loc)
	if err != nil {
		c.logger.Warn().Err(err).Str("event_id", item.Id).Msg("skipping event with unreadable end")
		return models.RemoteEvent{}, false
	}
	return models.RemoteEvent{ID: item.Id, Start: start, End: end}, true
}

// parseEventTime reads a timed or all-day boundary. All-day dates are midnight
// in the event's (or calendar's) timezone, which makes the range [date, endDate).
func parseEventTime(edt *calendar.EventDateTime, loc *time.Location) (time.Time, error) {
	if edt == nil {
		return time.Time{}, errors.New("missing date")
	}
	if edt.DateTime != "" {
		return time.Parse(time.RFC3339, edt.DateTime)
	}
	if edt.Date != "" {
		if edt.TimeZone != "" {
			loc = loadLocation(edt.TimeZone)
		}
		return time.ParseInLocation(dateLayout, edt.Date, loc)
	}
	return time.Time{}, errors.New("empty date")
}

func toEvent(draft models.EventDraft) *calendar.Event {
	ev := &calendar.Event{
		Summary:     draft.Summary,
		Description: draft.Description,
		Location:    draft.Location,
		Start:       &calendar.EventDateTime{DateTime: draft.Start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: draft.End.Format(time.RFC3339)},
	}
	for _, email := range draft.Attendees {
		if email == "" {
			continue
		}
		ev.Attendees = append(ev.Attendees, &calendar.EventAttendee{Email: email})
	}
	return ev
}

func calendarID(target domain.CalendarTarget) string {
	if target.CalendarID == "" {
		return models.DefaultCalendarID
	}
	return target.CalendarID
}

func loadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
