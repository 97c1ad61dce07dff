package models

import "time"

// VehiclePhoto tags a single captured inspection photo with the facet it
// documents. Photos live inside step completion payloads until finalization
// folds them into the condition report.
type VehiclePhoto struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
}

type DamageSeverity string

const (
	SeverityMinor    DamageSeverity = "minor"
	SeverityModerate DamageSeverity = "moderate"
	SeverityMajor    DamageSeverity = "major"
)

func (s DamageSeverity) Valid() bool {
	return s == SeverityMinor || s == SeverityModerate || s == SeverityMajor
}

// DamageReport documents one identified defect. Immutable once the
// damage_documentation step is completed; removable before that.
type DamageReport struct {
	ID          string         `json:"id"`
	Location    string         `json:"location"`
	Severity    DamageSeverity `json:"severity"`
	Description string         `json:"description"`
	Photos      []string       `json:"photos"`
	Timestamp   time.Time      `json:"timestamp"`
}
