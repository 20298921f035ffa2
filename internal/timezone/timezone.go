// Package timezone resolves a user's UTC offset from a local time, an
// offset or a city name.
package timezone

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Info describes a timezone by its representative zone and UTC offset in hours.
type Info struct {
	Name         string
	Abbreviation string
	Offset       float64
}

// Label renders the offset the way it is stored in user settings, e.g. "UTC+9".
func (i Info) Label() string {
	return FormatLabel(i.Offset)
}

// Location returns a fixed-offset location for the zone.
func (i Info) Location() *time.Location {
	return Location(i.Offset)
}

var offsetTable = []Info{
	{Name: "Etc/GMT+12", Offset: -12, Abbreviation: "IDLW"},
	{Name: "Pacific/Pago_Pago", Offset: -11, Abbreviation: "SST"},
	{Name: "Pacific/Honolulu", Offset: -10, Abbreviation: "HST"},
	{Name: "America/Anchorage", Offset: -9, Abbreviation: "AKST"},
	{Name: "America/Los_Angeles", Offset: -8, Abbreviation: "PST"},
	{Name: "America/Denver", Offset: -7, Abbreviation: "MST"},
	{Name: "America/Chicago", Offset: -6, Abbreviation: "CST"},
	{Name: "America/New_York", Offset: -5, Abbreviation: "EST"},
	{Name: "America/Toronto", Offset: -4, Abbreviation: "EDT"},
	{Name: "Canada/Newfoundland", Offset: -3.5, Abbreviation: "NDT"},
	{Name: "America/Sao_Paulo", Offset: -3, Abbreviation: "BRT"},
	{Name: "Atlantic/South_Georgia", Offset: -2, Abbreviation: "GST"},
	{Name: "Atlantic/Azores", Offset: -1, Abbreviation: "AZOT"},
	{Name: "UTC", Offset: 0, Abbreviation: "UTC"},
	{Name: "Europe/London", Offset: 1, Abbreviation: "GMT"},
	{Name: "Europe/Paris", Offset: 2, Abbreviation: "CEST"},
	{Name: "Europe/Moscow", Offset: 3, Abbreviation: "MSK"},
	{Name: "Asia/Dubai", Offset: 4, Abbreviation: "GST"},
	{Name: "Asia/Karachi", Offset: 5, Abbreviation: "PKT"},
	{Name: "Asia/Kolkata", Offset: 5.5, Abbreviation: "IST"},
	{Name: "Asia/Dhaka", Offset: 6, Abbreviation: "BDT"},
	{Name: "Asia/Bangkok", Offset: 7, Abbreviation: "ICT"},
	{Name: "Asia/Shanghai", Offset: 8, Abbreviation: "CST"},
	{Name: "Asia/Tokyo", Offset: 9, Abbreviation: "JST"},
	{Name: "Australia/Sydney", Offset: 10, Abbreviation: "AEST"},
	{Name: "Pacific/Guadalcanal", Offset: 11, Abbreviation: "SBT"},
	{Name: "Pacific/Fiji", Offset: 12, Abbreviation: "FJT"},
}

var cities = map[string]Info{
	"utc":        {Name: "UTC", Offset: 0, Abbreviation: "UTC"},
	"london":     {Name: "Europe/London", Offset: 0, Abbreviation: "GMT"},
	"paris":      {Name: "Europe/Paris", Offset: 1, Abbreviation: "CET"},
	"tokyo":      {Name: "Asia/Tokyo", Offset: 9, Abbreviation: "JST"},
	"sydney":     {Name: "Australia/Sydney", Offset: 10, Abbreviation: "AEST"},
	"newyork":    {Name: "America/New_York", Offset: -5, Abbreviation: "EST"},
	"losangeles": {Name: "America/Los_Angeles", Offset: -8, Abbreviation: "PST"},
}

var (
	timePattern   = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	offsetPattern = regexp.MustCompile(`^([+-]?)(\d+)$`)
	labelPattern  = regexp.MustCompile(`^UTC([+-]?\d+(?:\.\d+)?)$`)
)

// Cities returns the names accepted by ByCity, in display form.
func Cities() []string {
	return []string{"UTC", "London", "Paris", "Tokyo", "Sydney", "NewYork", "LosAngeles"}
}

// ByOffset finds the zone with the given offset in hours.
func ByOffset(hours float64) (Info, bool) {
	for _, tz := range offsetTable {
		if tz.Offset == hours {
			return tz, true
		}
	}
	return Info{}, false
}

// ByCity looks up a city, ignoring case and spaces.
func ByCity(name string) (Info, bool) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", ""))
	tz, ok := cities[key]
	return tz, ok
}

// FromLocalTime derives the zone from the user's current local time
// ("HH:MM"). The difference to UTC is folded into ±12 hours and rounded to
// the nearest half hour.
func FromLocalTime(input string, now time.Time) (Info, bool) {
	m := timePattern.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return Info{}, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return Info{}, false
	}

	utc := now.UTC()
	offsetMinutes := hour*60 + minute - (utc.Hour()*60 + utc.Minute())
	switch {
	case offsetMinutes > 12*60:
		offsetMinutes -= 24 * 60
	case offsetMinutes < -12*60:
		offsetMinutes += 24 * 60
	}

	halfHours := math.Round(float64(offsetMinutes) / 30)
	return ByOffset(halfHours / 2)
}

// Parse accepts a local time ("14:30"), a whole-hour offset ("+5", "-8") or
// a city name.
func Parse(input string, now time.Time) (Info, bool) {
	input = strings.TrimSpace(input)
	if strings.Contains(input, ":") {
		return FromLocalTime(input, now)
	}
	if m := offsetPattern.FindStringSubmatch(input); m != nil {
		hours, err := strconv.Atoi(m[0])
		if err != nil {
			return Info{}, false
		}
		return ByOffset(float64(hours))
	}
	return ByCity(input)
}

// FormatLabel renders an offset as "UTC+9", "UTC-3.5" or "UTC+0".
func FormatLabel(offset float64) string {
	sign := "+"
	if offset < 0 {
		sign = "-"
	}
	return fmt.Sprintf("UTC%s%s", sign, strconv.FormatFloat(math.Abs(offset), 'f', -1, 64))
}

// OffsetFromLabel parses a stored "UTC±N" label. Anything else is UTC.
func OffsetFromLabel(label string) float64 {
	m := labelPattern.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return 0
	}
	offset, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return offset
}

// Location returns a fixed zone for an offset in hours.
func Location(offset float64) *time.Location {
	return time.FixedZone(FormatLabel(offset), int(offset*3600))
}

// LocalDate returns the calendar date at now in the zone with the given
// offset, as midnight UTC of that date.
func LocalDate(now time.Time, offset float64) time.Time {
	local := now.In(Location(offset))
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
