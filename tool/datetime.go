package tool

import (
	"context"
	"fmt"
	"time"
)

// DateTime reports the current date and time. It gives the otherwise
// stateless LLM a reliable clock for questions like "what day is it".
type DateTime struct {
	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

// NewDateTime creates a DateTime tool using the system clock.
func NewDateTime() *DateTime {
	return &DateTime{Now: time.Now}
}

// Name returns the name of the tool.
func (d *DateTime) Name() string {
	return "get_current_datetime"
}

// Description returns the description of the tool.
func (d *DateTime) Description() string {
	return "Returns the current date and time. " +
		"Use when the user asks about today's date, the current time, or needs timestamps."
}

// Call returns the current date and time.
func (d *DateTime) Call(_ context.Context, args map[string]any) (string, error) {
	now := d.Now()

	format := "2006-01-02 15:04:05 MST"
	if f, ok := args["format"].(string); ok && f != "" {
		format = f
	}

	return fmt.Sprintf("Current date and time: %s", now.Format(format)), nil
}
