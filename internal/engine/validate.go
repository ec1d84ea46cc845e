package engine

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxTitleLen = 200
	maxNameLen  = 100
)

// startLayouts lists the accepted start timestamp formats.  Layouts
// without a zone are read as UTC.
var startLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// ShowingInput carries the caller-supplied fields of a showing.
type ShowingInput struct {
	Title           string
	StartsAt        string
	DurationMinutes int
	RoomID          uint64
}

// showingFields is a ShowingInput that passed validation.
type showingFields struct {
	title    string
	start    time.Time
	duration int
	roomID   uint64
}

func (e *Engine) validateShowing(in ShowingInput) (showingFields, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return showingFields{}, &ValidationError{Field: "title", Reason: "is required"}
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return showingFields{}, &ValidationError{Field: "title", Reason: fmt.Sprintf("must be at most %d characters", maxTitleLen)}
	}
	start, err := parseStart(in.StartsAt)
	if err != nil {
		return showingFields{}, err
	}
	if earliest := e.clock.Now().Add(e.limits.MinLeadTime); start.Before(earliest) {
		return showingFields{}, &ValidationError{
			Field:  "starts_at",
			Reason: fmt.Sprintf("must be at least %s in the future", e.limits.MinLeadTime),
		}
	}
	if in.DurationMinutes < e.limits.MinDuration || in.DurationMinutes > e.limits.MaxDuration {
		return showingFields{}, &ValidationError{
			Field:  "duration_minutes",
			Reason: fmt.Sprintf("must be between %d and %d", e.limits.MinDuration, e.limits.MaxDuration),
		}
	}
	if in.RoomID == 0 {
		return showingFields{}, &ValidationError{Field: "room_id", Reason: "is required"}
	}
	return showingFields{title: title, start: start, duration: in.DurationMinutes, roomID: in.RoomID}, nil
}

func parseStart(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, &ValidationError{Field: "starts_at", Reason: "is required"}
	}
	for _, layout := range startLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			// stored at second precision
			return t.UTC().Truncate(time.Second), nil
		}
	}
	return time.Time{}, &ValidationError{Field: "starts_at", Reason: "is not a valid timestamp"}
}

// validateClaim checks the claimant name and ticket count.  Names are
// trimmed and otherwise compared exactly.  A count above the per-person
// cap can never be admitted, so it is refused before any total is summed.
func (e *Engine) validateClaim(name string, tickets int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Field: "name", Reason: "is required"}
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return "", &ValidationError{Field: "name", Reason: fmt.Sprintf("must be at most %d characters", maxNameLen)}
	}
	if tickets < 1 {
		return "", &ValidationError{Field: "tickets", Reason: "must be at least 1"}
	}
	if tickets > e.limits.PerPersonCap {
		return "", &PerPersonLimitError{Limit: e.limits.PerPersonCap, Attempted: tickets}
	}
	return name, nil
}
