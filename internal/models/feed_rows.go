// Package models defines row-level projections of a static GTFS feed.
// Rows carry dates as 8-digit YYYYMMDD strings, exactly as they appear on
// the wire; interpretation (and tolerance of malformed values) belongs to
// the calendar and pruning packages.
package models

// UnknownRoute is the sentinel route id assigned to trips without a route
// and to services that own no trips at all.
const UnknownRoute = "__unknown_route__"

// Agency corresponds to a single row in agency.txt.
type Agency struct {
	ID       string `json:"agency_id"`
	Name     string `json:"agency_name"`
	URL      string `json:"agency_url"`
	Timezone string `json:"agency_timezone"`
	Lang     string `json:"agency_lang,omitempty"`
	Phone    string `json:"agency_phone,omitempty"`
}

// Stop corresponds to a single row in stops.txt.
type Stop struct {
	ID            string  `json:"stop_id"`
	Code          string  `json:"stop_code"`
	Name          string  `json:"stop_name"`
	Desc          string  `json:"stop_desc"`
	Lat           float64 `json:"stop_lat"`
	Lon           float64 `json:"stop_lon"`
	ZoneID        string  `json:"zone_id"`
	URL           string  `json:"stop_url"`
	LocationType  int     `json:"location_type"`
	ParentStation string  `json:"parent_station"`
}

// Route corresponds to a single row in routes.txt.
type Route struct {
	ID        string `json:"route_id"`
	AgencyID  string `json:"agency_id"`
	ShortName string `json:"route_short_name"`
	LongName  string `json:"route_long_name"`
	Desc      string `json:"route_desc,omitempty"`
	Type      int    `json:"route_type"`
	URL       string `json:"route_url,omitempty"`
	Color     string `json:"route_color,omitempty"`
	TextColor string `json:"route_text_color,omitempty"`
}

// Trip corresponds to a single row in trips.txt. RouteID may be empty when
// the feed omits it; grouping substitutes UnknownRoute.
type Trip struct {
	ID          string `json:"trip_id"`
	RouteID     string `json:"route_id"`
	ServiceID   string `json:"service_id"`
	Headsign    string `json:"trip_headsign,omitempty"`
	ShortName   string `json:"trip_short_name,omitempty"`
	DirectionID int    `json:"direction_id"`
	BlockID     string `json:"block_id,omitempty"`
}

// StopTime corresponds to a single row in stop_times.txt. Only TripID is
// meaningful to the pruning core; everything else passes through untouched.
type StopTime struct {
	TripID        string `json:"trip_id"`
	ArrivalTime   string `json:"arrival_time"`
	DepartureTime string `json:"departure_time"`
	StopID        string `json:"stop_id"`
	StopSequence  int    `json:"stop_sequence"`
	StopHeadsign  string `json:"stop_headsign"`
	PickupType    string `json:"pickup_type"`
	DropOffType   string `json:"drop_off_type"`
	Timepoint     string `json:"timepoint"`
}

// Calendar corresponds to a single row in calendar.txt. StartDate and
// EndDate are YYYYMMDD; empty or malformed values mean the calendar
// contributes no weekly activation.
type Calendar struct {
	ServiceID string `json:"service_id"`
	Monday    bool   `json:"monday"`
	Tuesday   bool   `json:"tuesday"`
	Wednesday bool   `json:"wednesday"`
	Thursday  bool   `json:"thursday"`
	Friday    bool   `json:"friday"`
	Saturday  bool   `json:"saturday"`
	Sunday    bool   `json:"sunday"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// WeekdayMask is a Monday-first week pattern (index 0 = Monday ... 6 = Sunday).
type WeekdayMask [7]bool

// Mask returns the calendar's weekly pattern, Monday first.
func (c Calendar) Mask() WeekdayMask {
	return WeekdayMask{c.Monday, c.Tuesday, c.Wednesday, c.Thursday, c.Friday, c.Saturday, c.Sunday}
}

// ActiveDayCount returns how many weekdays the mask has set.
func (m WeekdayMask) ActiveDayCount() int {
	n := 0
	for _, set := range m {
		if set {
			n++
		}
	}
	return n
}

// String renders the mask as seven 0/1 digits, Monday first.
func (m WeekdayMask) String() string {
	b := make([]byte, 7)
	for i, set := range m {
		if set {
			b[i] = '1'
		} else {
			b[i] = '0'
		}
	}
	return string(b)
}

// Exception kinds in calendar_dates.txt.
const (
	ExceptionAdd    = 1
	ExceptionRemove = 2
)

// CalendarDate corresponds to a single row in calendar_dates.txt.
type CalendarDate struct {
	ServiceID     string `json:"service_id"`
	Date          string `json:"date"`
	ExceptionType int    `json:"exception_type"`
}

// FeedInfo corresponds to a single row in feed_info.txt.
type FeedInfo struct {
	PublisherName string `json:"feed_publisher_name"`
	PublisherURL  string `json:"feed_publisher_url"`
	Lang          string `json:"feed_lang"`
	StartDate     string `json:"feed_start_date"`
	EndDate       string `json:"feed_end_date"`
	Version       string `json:"feed_version"`
}
