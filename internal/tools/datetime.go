package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// commonZones is searched when the location is not itself an IANA zone name.
var commonZones = []string{
	"Africa/Cairo", "Africa/Johannesburg", "Africa/Lagos", "Africa/Nairobi",
	"America/Anchorage", "America/Argentina/Buenos_Aires", "America/Bogota",
	"America/Chicago", "America/Denver", "America/Halifax", "America/Lima",
	"America/Los_Angeles", "America/Mexico_City", "America/New_York",
	"America/Phoenix", "America/Santiago", "America/Sao_Paulo", "America/Toronto",
	"America/Vancouver", "Asia/Bangkok", "Asia/Dubai", "Asia/Hong_Kong",
	"Asia/Jakarta", "Asia/Jerusalem", "Asia/Karachi", "Asia/Kolkata",
	"Asia/Manila", "Asia/Seoul", "Asia/Shanghai", "Asia/Singapore", "Asia/Taipei",
	"Asia/Tehran", "Asia/Tokyo", "Atlantic/Reykjavik", "Australia/Adelaide",
	"Australia/Brisbane", "Australia/Melbourne", "Australia/Perth",
	"Australia/Sydney", "Europe/Amsterdam", "Europe/Athens", "Europe/Berlin",
	"Europe/Brussels", "Europe/Dublin", "Europe/Helsinki", "Europe/Istanbul",
	"Europe/Lisbon", "Europe/London", "Europe/Madrid", "Europe/Moscow",
	"Europe/Oslo", "Europe/Paris", "Europe/Prague", "Europe/Rome",
	"Europe/Stockholm", "Europe/Vienna", "Europe/Warsaw", "Europe/Zurich",
	"Pacific/Auckland", "Pacific/Honolulu",
}

// DateTime reports the current time in a timezone.
type DateTime struct {
	now func() time.Time
}

// NewDateTime creates the get_current_datetime tool.
func NewDateTime() *DateTime {
	return &DateTime{now: time.Now}
}

func (d *DateTime) Name() string { return "get_current_datetime" }

func (d *DateTime) Description() string {
	return "Gets the current date and time. If the user names a location (a city or an IANA time zone such as 'Asia/Tokyo'), returns the local time there; otherwise returns UTC."
}

func (d *DateTime) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"location": map[string]any{
			"type":        "string",
			"description": "Optional. A city name (e.g. 'London') or IANA time zone (e.g. 'Europe/Paris', 'America/New_York').",
		},
	})
}

// Call never fails on an unknown location; it falls back to UTC and says so.
func (d *DateTime) Call(_ context.Context, raw json.RawMessage) (string, error) {
	var args struct {
		Location string `json:"location"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}

	loc, matched := resolveZone(args.Location)
	now := d.now().In(loc)

	out := map[string]any{
		"timezone": loc.String(),
		"datetime": now.Format("2006-01-02 15:04:05 MST-0700"),
	}
	if args.Location != "" {
		out["location"] = args.Location
		if !matched {
			out["note"] = fmt.Sprintf("no time zone found for %q, using UTC", args.Location)
		}
	}
	b, err := json.Marshal(out)
	return string(b), err
}

// resolveZone tries an exact IANA name first, then a case-insensitive
// substring match against commonZones with underscores read as spaces.
func resolveZone(location string) (*time.Location, bool) {
	location = strings.TrimSpace(location)
	if location == "" {
		return time.UTC, true
	}
	if loc, err := time.LoadLocation(location); err == nil && location != "Local" {
		return loc, true
	}

	needle := strings.ToLower(location)
	for _, name := range commonZones {
		hay := strings.ToLower(strings.ReplaceAll(name, "_", " "))
		if strings.Contains(hay, needle) {
			if loc, err := time.LoadLocation(name); err == nil {
				return loc, true
			}
		}
	}
	return time.UTC, false
}
