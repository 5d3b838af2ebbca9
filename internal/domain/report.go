package domain

import "time"

// Report is a user field submission: an eyewitness hazard observation sent
// from a device, as opposed to content pulled from a provider API.
type Report struct {
	Author     string    `json:"author"`
	Text       string    `json:"text"`
	CapturedAt time.Time `json:"captured_at"`          // when the observation was made
	Location   *Geo      `json:"location,omitempty"`   // device coordinate at capture
	PlaceHint  string    `json:"place_hint,omitempty"` // free-text place description
}

// ToRawItem converts a report into the pipeline's common item shape.
// Reports carry no provider engagement counters, so Known stays false.
func (r Report) ToRawItem(submittedAt time.Time) RawItem {
	return RawItem{
		ID:        GenerateItemID("report", r.Author, r.Text, r.CapturedAt),
		Source:    "report",
		Author:    r.Author,
		Text:      r.Text,
		Timestamp: submittedAt,
		Location:  r.Location,
		PlaceHint: r.PlaceHint,
	}
}
