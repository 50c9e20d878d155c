package clinic

import (
	"fmt"
	"strings"
	"time"
)

// Window is an open interval of clinic hours on a single day, in whole hours.
type Window struct {
	OpenHour  int
	CloseHour int
}

// Closed reports whether the window represents a closed day.
func (w Window) Closed() bool {
	return w.CloseHour <= w.OpenHour
}

// Contains reports whether the given hour falls inside the window.
func (w Window) Contains(hour int) bool {
	if w.Closed() {
		return false
	}
	return hour >= w.OpenHour && hour <= w.CloseHour
}

// Hours describes the weekly schedule of the clinic.
type Hours struct {
	windows [7]Window // indexed by time.Weekday
}

// defaultFallbackHour is where out-of-window appointment candidates land.
const defaultFallbackHour = 10

// Default returns the standard clinic schedule:
// Monday-Friday 8 AM - 6 PM, Saturday 9 AM - 3 PM, closed Sunday.
func Default() *Hours {
	h := &Hours{}
	for d := time.Monday; d <= time.Friday; d++ {
		h.windows[d] = Window{OpenHour: 8, CloseHour: 18}
	}
	h.windows[time.Saturday] = Window{OpenHour: 9, CloseHour: 15}
	return h
}

// Window returns the schedule window for the given weekday.
func (h *Hours) Window(day time.Weekday) Window {
	return h.windows[day]
}

// Open reports whether the clinic is open at the given time.
func (h *Hours) Open(t time.Time) bool {
	return h.windows[t.Weekday()].Contains(t.Hour())
}

// Clamp moves an out-of-window appointment time to the fallback hour on the
// same day. Minutes are preserved only when the original hour was in window.
func (h *Hours) Clamp(t time.Time) time.Time {
	w := h.windows[t.Weekday()]
	if w.Contains(t.Hour()) {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), defaultFallbackHour, 0, 0, 0, t.Location())
}

// Describe renders the weekly schedule as a single sentence for chat replies,
// grouping consecutive days that share the same window. The default schedule
// renders as "Monday through Friday 8 AM to 6 PM, and Saturday 9 AM to 3 PM".
func (h *Hours) Describe() string {
	var parts []string
	for d := time.Monday; d <= time.Saturday; {
		w := h.windows[d]
		if w.Closed() {
			d++
			continue
		}
		end := d
		for end < time.Saturday && h.windows[end+1] == w {
			end++
		}
		span := d.String()
		if end > d {
			span = fmt.Sprintf("%s through %s", d.String(), end.String())
		}
		parts = append(parts, fmt.Sprintf("%s %s to %s", span, formatHour(w.OpenHour), formatHour(w.CloseHour)))
		d = end + 1
	}
	if len(parts) == 0 {
		return "The clinic schedule is not configured."
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + ", and " + parts[len(parts)-1]
}

func formatHour(hour int) string {
	t := time.Date(2000, time.January, 1, hour, 0, 0, 0, time.UTC)
	return t.Format("3 PM")
}
