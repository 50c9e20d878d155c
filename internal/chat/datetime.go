package chat

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kmarsh82/dental-ai-service/internal/clinic"
)

// timeOfDayRE captures "2pm", "10:30am", "3", "4 p.m." style mentions.
var timeOfDayRE = regexp.MustCompile(`(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.?m\.?|p\.?m\.?)?`)

// weekdayMention pairs a name fragment with its weekday. Full names are
// listed before abbreviations so "monday" is not consumed by "mon".
type weekdayMention struct {
	token string
	day   time.Weekday
}

var weekdayMentions = []weekdayMention{
	{"monday", time.Monday}, {"tuesday", time.Tuesday}, {"wednesday", time.Wednesday},
	{"thursday", time.Thursday}, {"friday", time.Friday}, {"saturday", time.Saturday},
	{"sunday", time.Sunday},
	{"mon", time.Monday}, {"tue", time.Tuesday}, {"wed", time.Wednesday},
	{"thu", time.Thursday}, {"fri", time.Friday}, {"sat", time.Saturday},
	{"sun", time.Sunday},
}

// relativeMention maps relative phrases to a day offset from today.
type relativeMention struct {
	token string
	days  int
}

var relativeMentions = []relativeMention{
	{"tomorrow", 1},
	{"today", 0},
	{"next week", 7},
}

// Extractor is the regex-based fallback for pulling an appointment
// candidate out of free text when the LLM path is unavailable.
type Extractor struct {
	hours *clinic.Hours
	now   func() time.Time
}

// NewExtractor creates an extractor clamped to the given clinic schedule.
func NewExtractor(hours *clinic.Hours) *Extractor {
	if hours == nil {
		hours = clinic.Default()
	}
	return &Extractor{hours: hours, now: time.Now}
}

// Extract returns the appointment candidate mentioned in the text, if any.
// Handles "Monday at 2pm", "next tuesday 10:30am", "Friday at 3",
// "tomorrow at 9am", "next week".
func (e *Extractor) Extract(text string) (time.Time, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return time.Time{}, false
	}

	timeMatch := timeOfDayRE.FindStringSubmatch(lower)

	if day, ok := findWeekday(lower); ok {
		now := e.now()
		daysAhead := int(day-now.Weekday()+7) % 7
		if daysAhead == 0 {
			// Same weekday as today means next week's occurrence.
			daysAhead = 7
		}
		target := now.AddDate(0, 0, daysAhead)
		target = e.applyTime(target, timeMatch, true)
		return target, true
	}

	for _, rel := range relativeMentions {
		if strings.Contains(lower, rel.token) {
			target := e.now().AddDate(0, 0, rel.days)
			target = e.applyTime(target, timeMatch, false)
			return target, true
		}
	}

	return time.Time{}, false
}

// applyTime merges a parsed time-of-day into the target date. When no usable
// time was mentioned the default appointment hour is used. clamp applies the
// clinic schedule afterwards (weekday mentions only, matching how relative
// dates like "today" may legitimately fall outside the booking window).
func (e *Extractor) applyTime(target time.Time, timeMatch []string, clamp bool) time.Time {
	hour, minute, ok := parseTimeOfDay(timeMatch)
	if !ok {
		hour, minute = 10, 0
	}
	target = time.Date(target.Year(), target.Month(), target.Day(), hour, minute, 0, 0, target.Location())
	if clamp {
		target = e.hours.Clamp(target)
	}
	return target
}

// parseTimeOfDay converts regex captures into a 24h hour/minute pair.
// A bare hour below 8 with no meridiem is assumed to mean the afternoon.
func parseTimeOfDay(match []string) (hour, minute int, ok bool) {
	if len(match) < 4 || match[1] == "" {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(match[1])
	if match[2] != "" {
		minute, _ = strconv.Atoi(match[2])
	}

	meridiem := strings.ReplaceAll(strings.ToLower(match[3]), ".", "")
	switch {
	case strings.HasPrefix(meridiem, "p"):
		if hour != 12 {
			hour += 12
		}
	case strings.HasPrefix(meridiem, "a"):
		if hour == 12 {
			hour = 0
		}
	case hour < 8:
		hour += 12
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

func findWeekday(text string) (time.Weekday, bool) {
	for _, m := range weekdayMentions {
		if strings.Contains(text, m.token) {
			return m.day, true
		}
	}
	return time.Sunday, false
}
