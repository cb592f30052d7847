package response_models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c *Coordinates) IsZero() bool {
	return c == nil || (c.Lat == 0 && c.Lng == 0)
}

// FlexString accepts a JSON string, number or null. Models are not consistent about
// quoting costs and durations.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// Activity is either a free-text line (Text set) or a structured entry.
type Activity struct {
	Text        string       `json:"-"`
	Time        string       `json:"time,omitempty"`
	Title       string       `json:"title,omitempty"`
	Location    string       `json:"location,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Duration    FlexString   `json:"duration,omitempty"`
	Cost        FlexString   `json:"cost,omitempty"`
	Category    string       `json:"category,omitempty"`
	Description string       `json:"description,omitempty"`
}

type activityFields Activity

func (a Activity) IsText() bool {
	return a.Text != ""
}

func (a Activity) MarshalJSON() ([]byte, error) {
	if a.IsText() {
		return json.Marshal(a.Text)
	}
	return json.Marshal(activityFields(a))
}

func (a *Activity) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Activity{Text: s}
		return nil
	}
	var f activityFields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*a = Activity(f)
	return nil
}

// Place is the name used for geocoding: the location when given, else the title. A text
// activity only has a place once one has been matched onto it.
func (a Activity) Place() string {
	if a.IsText() {
		return strings.TrimSpace(a.Location)
	}
	if p := strings.TrimSpace(a.Location); p != "" {
		return p
	}
	return strings.TrimSpace(a.Title)
}

// Line flattens the activity to the single descriptive line stored on the trip.
func (a Activity) Line() string {
	if a.IsText() {
		return a.Text
	}
	var sb strings.Builder
	if a.Time != "" {
		sb.WriteString(a.Time)
		sb.WriteString(" - ")
	}
	title := a.Title
	if title == "" {
		title = a.Location
	}
	sb.WriteString(title)
	if a.Location != "" && a.Location != title {
		sb.WriteString(" @ ")
		sb.WriteString(a.Location)
	}
	var extras []string
	if a.Duration != "" {
		extras = append(extras, string(a.Duration))
	}
	if a.Cost != "" {
		if _, err := strconv.ParseFloat(string(a.Cost), 64); err == nil {
			extras = append(extras, "~$"+string(a.Cost))
		} else {
			extras = append(extras, string(a.Cost))
		}
	}
	if len(extras) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(extras, ", "))
		sb.WriteString(")")
	}
	if a.Description != "" {
		sb.WriteString(": ")
		sb.WriteString(a.Description)
	}
	return sb.String()
}

type RichDay struct {
	Day        int        `json:"day"`
	Title      string     `json:"title"`
	Activities []Activity `json:"activities"`
}

// StoredDay is the flattened shape persisted on the trip.
type StoredDay struct {
	Day        int      `json:"day"`
	Title      string   `json:"title"`
	Activities []string `json:"activities"`
}

// ToRichDays lifts stored days back into free-text activities.
func ToRichDays(stored []StoredDay) []RichDay {
	days := make([]RichDay, 0, len(stored))
	for _, s := range stored {
		acts := make([]Activity, 0, len(s.Activities))
		for _, line := range s.Activities {
			acts = append(acts, Activity{Text: line})
		}
		days = append(days, RichDay{Day: s.Day, Title: s.Title, Activities: acts})
	}
	return days
}

type Waypoint struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label"`
	Order int     `json:"order"`
}

// Modifications are the trip-level deltas declared by an edit. Nil means unchanged.
type Modifications struct {
	Destination *string  `json:"destination"`
	Budget      *float64 `json:"budget"`
	Travelers   *int     `json:"travelers"`
	Preferences *string  `json:"preferences"`
	Duration    *int     `json:"duration"`
}

func (m Modifications) Empty() bool {
	return m.Destination == nil && m.Budget == nil && m.Travelers == nil && m.Preferences == nil && m.Duration == nil
}

type FeedbackEntry struct {
	Message    string `json:"message"`
	InstanceID string `json:"instance_id"`
	At         int64  `json:"at"`
}

// TripMetadata is the JSON stored in trips.metadata.
type TripMetadata struct {
	Request         json.RawMessage `json:"request,omitempty"`
	FeedbackHistory []FeedbackEntry `json:"feedback_history"`
	PipelineVersion string          `json:"pipeline_version,omitempty"`
	Language        string          `json:"language,omitempty"`
	Reasoning       string          `json:"reasoning,omitempty"`
	Warnings        []string        `json:"warnings,omitempty"`
	Modifications   *Modifications  `json:"modifications,omitempty"`
	LastError       string          `json:"last_error,omitempty"`
	DayCountChanged bool            `json:"day_count_changed,omitempty"`
	FallbackUsed    bool            `json:"fallback_used,omitempty"`
	LastInstanceID  string          `json:"last_instance_id,omitempty"`
}
