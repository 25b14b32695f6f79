package calendar

import (
	"context"
	"fmt"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Event is the calendar representation of a scheduled session or interview.
type Event struct {
	Title       string
	Description string
	Start       time.Time
	Duration    time.Duration
	Location    string
	Attendees   []string
}

// Provider syncs events with an external calendar.
type Provider interface {
	CreateEvent(ctx context.Context, ev Event) (string, error)
	UpdateEvent(ctx context.Context, eventID string, ev Event) error
	DeleteEvent(ctx context.Context, eventID string) error
}

// GoogleCalendar writes events to one Google calendar with a service account.
type GoogleCalendar struct {
	svc        *gcal.Service
	calendarID string
	timeZone   string
}

// NewGoogleCalendar builds a calendar client from a credentials file.
func NewGoogleCalendar(ctx context.Context, credentialsFile, calendarID, timeZone string) (*GoogleCalendar, error) {
	opts := []option.ClientOption{option.WithScopes(gcal.CalendarEventsScope)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleCalendar{svc: svc, calendarID: calendarID, timeZone: timeZone}, nil
}

// CreateEvent inserts the event and returns its id.
func (g *GoogleCalendar) CreateEvent(ctx context.Context, ev Event) (string, error) {
	created, err := g.svc.Events.Insert(g.calendarID, g.toGoogle(ev)).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert calendar event: %w", err)
	}
	return created.Id, nil
}

// UpdateEvent patches an existing event.
func (g *GoogleCalendar) UpdateEvent(ctx context.Context, eventID string, ev Event) error {
	if _, err := g.svc.Events.Patch(g.calendarID, eventID, g.toGoogle(ev)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("patch calendar event: %w", err)
	}
	return nil
}

// DeleteEvent removes an event.
func (g *GoogleCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	if err := g.svc.Events.Delete(g.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}

func (g *GoogleCalendar) toGoogle(ev Event) *gcal.Event {
	return ToGoogleEvent(ev, g.timeZone)
}

// ToGoogleEvent maps an Event to the Calendar API shape.
func ToGoogleEvent(ev Event, timeZone string) *gcal.Event {
	duration := ev.Duration
	if duration <= 0 {
		duration = time.Hour
	}
	out := &gcal.Event{
		Summary:     ev.Title,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       &gcal.EventDateTime{DateTime: ev.Start.Format(time.RFC3339), TimeZone: timeZone},
		End:         &gcal.EventDateTime{DateTime: ev.Start.Add(duration).Format(time.RFC3339), TimeZone: timeZone},
	}
	for _, email := range ev.Attendees {
		if email != "" {
			out.Attendees = append(out.Attendees, &gcal.EventAttendee{Email: email})
		}
	}
	return out
}

// Noop is used when calendar sync is disabled.
type Noop struct{}

func (Noop) CreateEvent(context.Context, Event) (string, error) { return "", nil }
func (Noop) UpdateEvent(context.Context, string, Event) error   { return nil }
func (Noop) DeleteEvent(context.Context, string) error          { return nil }
