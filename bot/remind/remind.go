// Package remind parses reminder requests and formats times and durations
// the way they are shown to users.
package remind

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jonesycrew/ashbot/store"
)

// ErrUnparseable is returned when no time expression is recognized.
var ErrUnparseable = errors.New("no recognizable time expression")

// location is the community's home timezone; user-visible times render in it
// (BST when DST is active, GMT otherwise).
var location = mustLoadLocation()

func mustLoadLocation() *time.Location {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		return time.UTC
	}
	return loc
}

// Location returns the display timezone.
func Location() *time.Location { return location }

var durationPairPattern = regexp.MustCompile(`^(?:(\d+)d)?(?:(\d+)h)?(?:(\d+)m)?(?:(\d+)s)?$`)

// ParseDuration parses concatenated integer-unit pairs like "1h30m" or "2d".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	m := durationPairPattern.FindStringSubmatch(s)
	if m == nil || s == "" {
		return 0, errors.Wrapf(ErrUnparseable, "bad duration %q", s)
	}
	var d time.Duration
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	matched := false
	for i, unit := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, errors.Wrapf(ErrUnparseable, "bad duration %q", s)
		}
		d += time.Duration(n) * unit
		matched = true
	}
	if !matched || d <= 0 {
		return 0, errors.Wrapf(ErrUnparseable, "bad duration %q", s)
	}
	return d, nil
}

// Mention is a parsed `@user <duration> <text> [| auto:<action>]` request.
type Mention struct {
	TargetUserID string
	Duration     time.Duration
	Text         string
	AutoAction   store.AutoActionKind
	AutoPayload  string
}

var mentionPattern = regexp.MustCompile(`^<@!?(\d+)>\s+(\S+)\s+(.+)$`)

// ParseMention parses the platform-mention reminder format.
func ParseMention(args string) (*Mention, error) {
	m := mentionPattern.FindStringSubmatch(strings.TrimSpace(args))
	if m == nil {
		return nil, errors.Wrap(ErrUnparseable, "expected: @user <duration> <text>")
	}
	d, err := ParseDuration(m[2])
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(m[3])
	parsed := &Mention{TargetUserID: m[1], Duration: d, Text: text}
	if body, auto, ok := strings.Cut(text, "|"); ok {
		auto = strings.TrimSpace(auto)
		if action, found := strings.CutPrefix(auto, "auto:"); found {
			parsed.Text = strings.TrimSpace(body)
			if err := parsed.setAutoAction(action); err != nil {
				return nil, err
			}
		}
	}
	return parsed, nil
}

func (m *Mention) setAutoAction(action string) error {
	action = strings.TrimSpace(action)
	name, payload, _ := strings.Cut(action, " ")
	switch store.AutoActionKind(name) {
	case store.AutoActionMute, store.AutoActionKick, store.AutoActionBan, store.AutoActionYouTubePost:
		m.AutoAction = store.AutoActionKind(name)
		m.AutoPayload = strings.TrimSpace(payload)
		return nil
	}
	return errors.Errorf("unknown auto action %q", name)
}

// Natural is a parsed natural-language reminder.
type Natural struct {
	At   time.Time
	Text string
}

var (
	leadPattern     = regexp.MustCompile(`(?i)^(?:remind\s+)?(?:me\s+)?`)
	inPattern       = regexp.MustCompile(`(?i)\bin\s+(\d+)\s+(second|minute|hour|day)s?\b`)
	atColonPattern  = regexp.MustCompile(`(?i)\bat\s+(\d{1,2}):(\d{2})\s*(am|pm)?\b`)
	atDotPattern    = regexp.MustCompile(`(?i)\bat\s+(\d{1,2})\.(\d{2})\b`)
	tomorrowPattern = regexp.MustCompile(`(?i)\btomorrow\b(?:\s+at\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?)?`)
	forPMPattern    = regexp.MustCompile(`(?i)\bfor\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	wordPattern     = regexp.MustCompile(`(?i)\b(one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)\s+(am|pm)\b`)
)

var wordHours = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
}

// ParseNatural extracts a time expression from free text. The remaining text,
// minus connective words, becomes the reminder body. Patterns are tried in a
// fixed order; the first match wins.
func ParseNatural(text string, now time.Time) (*Natural, error) {
	text = leadPattern.ReplaceAllString(strings.TrimSpace(text), "")
	now = now.In(location)

	// "tomorrow at 2:15 pm" must not be consumed by the bare clock-time
	// branch, so the tomorrow form is resolved first when the word appears.
	if loc := tomorrowPattern.FindStringSubmatchIndex(text); loc != nil {
		m := tomorrowPattern.FindStringSubmatch(text)
		hour, minute := 9, 0
		if m[1] != "" {
			h, mm, err := parseClockFields(m[1], m[2], m[3])
			if err != nil {
				return nil, err
			}
			hour, minute = h, mm
		}
		tomorrow := now.AddDate(0, 0, 1)
		at := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), hour, minute, 0, 0, location)
		return natural(at, cut(text, loc))
	}

	if loc := inPattern.FindStringSubmatchIndex(text); loc != nil {
		m := inPattern.FindStringSubmatch(text)
		n, _ := strconv.Atoi(m[1])
		unit := map[string]time.Duration{
			"second": time.Second, "minute": time.Minute,
			"hour": time.Hour, "day": 24 * time.Hour,
		}[strings.ToLower(m[2])]
		return natural(now.Add(time.Duration(n)*unit), cut(text, loc))
	}

	if loc := atColonPattern.FindStringSubmatchIndex(text); loc != nil {
		m := atColonPattern.FindStringSubmatch(text)
		at, err := clockTime(now, m[1], m[2], m[3])
		if err != nil {
			return nil, err
		}
		return natural(at, cut(text, loc))
	}

	if loc := atDotPattern.FindStringSubmatchIndex(text); loc != nil {
		m := atDotPattern.FindStringSubmatch(text)
		at, err := clockTime(now, m[1], m[2], "")
		if err != nil {
			return nil, err
		}
		return natural(at, cut(text, loc))
	}

	if loc := forPMPattern.FindStringSubmatchIndex(text); loc != nil {
		m := forPMPattern.FindStringSubmatch(text)
		at, err := clockTime(now, m[1], m[2], m[3])
		if err != nil {
			return nil, err
		}
		return natural(at, cut(text, loc))
	}

	if loc := wordPattern.FindStringSubmatchIndex(text); loc != nil {
		m := wordPattern.FindStringSubmatch(text)
		hour := strconv.Itoa(wordHours[strings.ToLower(m[1])])
		at, err := clockTime(now, hour, "", m[2])
		if err != nil {
			return nil, err
		}
		return natural(at, cut(text, loc))
	}

	return nil, ErrUnparseable
}

func natural(at time.Time, text string) (*Natural, error) {
	return &Natural{At: at, Text: text}, nil
}

// cut removes the matched span and tidies the remainder into reminder text.
func cut(text string, loc []int) string {
	remainder := strings.TrimSpace(text[:loc[0]] + " " + text[loc[1]:])
	remainder = regexp.MustCompile(`(?i)^to\s+`).ReplaceAllString(remainder, "")
	remainder = regexp.MustCompile(`\s+`).ReplaceAllString(remainder, " ")
	return strings.TrimSpace(remainder)
}

func parseClockFields(hourStr, minuteStr, meridiem string) (int, int, error) {
	hour, err := strconv.Atoi(hourStr)
	if err != nil || hour > 23 {
		return 0, 0, errors.Wrapf(ErrUnparseable, "bad hour %q", hourStr)
	}
	minute := 0
	if minuteStr != "" {
		minute, err = strconv.Atoi(minuteStr)
		if err != nil || minute > 59 {
			return 0, 0, errors.Wrapf(ErrUnparseable, "bad minute %q", minuteStr)
		}
	}
	switch strings.ToLower(meridiem) {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return hour, minute, nil
}

// clockTime resolves an hour/minute to the next occurrence: today when still
// in the future, otherwise tomorrow.
func clockTime(now time.Time, hourStr, minuteStr, meridiem string) (time.Time, error) {
	hour, minute, err := parseClockFields(hourStr, minuteStr, meridiem)
	if err != nil {
		return time.Time{}, err
	}
	at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, location)
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at, nil
}

// FormatTime renders an instant for users: 12-hour clock with the London
// zone abbreviation (BST or GMT).
func FormatTime(t time.Time) string {
	t = t.In(location)
	zone, _ := t.Zone()
	return t.Format("3:04 PM") + " " + zone
}

// FormatDuration renders a duration with correct pluralization. Sub-minute
// durations of at least 30 seconds round up to "1 minute".
func FormatDuration(d time.Duration) string {
	if d < 30*time.Second {
		return "less than a minute"
	}
	minutes := int((d + 30*time.Second) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}

	days := minutes / (24 * 60)
	hours := (minutes / 60) % 24
	minutes = minutes % 60

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if len(parts) == 0 {
		parts = append(parts, "1 minute")
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
