package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// HazardLabel is one of the fixed coastal hazard categories.
type HazardLabel string

const (
	LabelTsunami        HazardLabel = "Tsunami"
	LabelCyclone        HazardLabel = "Cyclone"
	LabelStormSurge     HazardLabel = "StormSurge"
	LabelHighWaves      HazardLabel = "HighWaves"
	LabelFlood          HazardLabel = "Flood"
	LabelLandslide      HazardLabel = "Landslide"
	LabelEarthquake     HazardLabel = "Earthquake"
	LabelCoastalErosion HazardLabel = "CoastalErosion"
	LabelOther          HazardLabel = "Other"
)

// AllHazardLabels lists every label in severity order, used as the candidate
// set for zero-shot classification. Order is fixed so classifier requests are
// byte-identical for identical text and therefore cacheable.
var AllHazardLabels = []HazardLabel{
	LabelTsunami,
	LabelEarthquake,
	LabelCyclone,
	LabelFlood,
	LabelStormSurge,
	LabelLandslide,
	LabelHighWaves,
	LabelCoastalErosion,
	LabelOther,
}

// ValidHazardLabel reports whether s is a member of the fixed taxonomy.
func ValidHazardLabel(s string) bool {
	for _, l := range AllHazardLabels {
		if string(l) == s {
			return true
		}
	}
	return false
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Engagement holds provider-native interaction counters. Known is false when
// the provider exposes no counters for the item; unknown engagement must not
// contribute to any engagement-weighted computation.
type Engagement struct {
	Likes    int  `json:"likes"`
	Shares   int  `json:"shares"`
	Comments int  `json:"comments"`
	Known    bool `json:"known"`
}

// Total returns the summed counters, or 0 when engagement is unknown.
func (e Engagement) Total() int {
	if !e.Known {
		return 0
	}
	return e.Likes + e.Shares + e.Comments
}

// RawItem is the normalized shape every connector produces. Immutable once
// returned from a connector.
type RawItem struct {
	ID         string     `json:"id"` // provider-native ID, source-prefixed
	Source     string     `json:"source"`
	Author     string     `json:"author"`
	Text       string     `json:"text"`
	Timestamp  time.Time  `json:"timestamp"`
	Location   *Geo       `json:"location,omitempty"` // nil when the provider gave no coordinate
	PlaceHint  string     `json:"place_hint,omitempty"`
	Engagement Engagement `json:"engagement"`
}

// EntityType partitions extracted entities.
type EntityType string

const (
	EntityLocation     EntityType = "Location"
	EntityPerson       EntityType = "Person"
	EntityOrganization EntityType = "Organization"
	EntityHazard       EntityType = "Hazard"
	EntityNumber       EntityType = "Number"
)

// Entity is a named entity extracted from item text, positioned by the byte
// offset of its first occurrence.
type Entity struct {
	Text       string     `json:"text"`
	Type       EntityType `json:"type"`
	Confidence float64    `json:"confidence"`
	Offset     int        `json:"offset"`
}

// Sentiment is the coarse polarity of an item's text.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNegative Sentiment = "Negative"
	SentimentNeutral  Sentiment = "Neutral"
)

// Classification pairs a hazard label with the classifier's confidence.
type Classification struct {
	Label      HazardLabel `json:"label"`
	Confidence float64     `json:"confidence"` // 0.0-1.0
}

// AuthorityStatus reflects the optional authority advisory check.
type AuthorityStatus string

const (
	AuthorityDisabled    AuthorityStatus = "disabled"
	AuthorityVerified    AuthorityStatus = "verified"
	AuthorityNotVerified AuthorityStatus = "notVerified"
	AuthorityError       AuthorityStatus = "error"
)

// VerificationMetadata carries field-verification evidence folded into the
// priority score. Produced externally to the scorer and never mutated after.
// LocationMatch is nil when no comparison was possible; only an explicit
// mismatch (false) is penalized.
type VerificationMetadata struct {
	DelayedUpload   bool            `json:"delayed_upload"`
	LocationMatch   *bool           `json:"location_match,omitempty"`
	AuthorityStatus AuthorityStatus `json:"authority_status"`
}

// ClassifiedItem is a RawItem after classification, entity extraction,
// sentiment analysis, and scoring. PriorityScore is written once by the
// scorer and read-only afterwards.
type ClassifiedItem struct {
	RawItem

	Classification Classification       `json:"classification"`
	Entities       []Entity             `json:"entities,omitempty"`
	Sentiment      Sentiment            `json:"sentiment"`
	Verification   VerificationMetadata `json:"verification"`
	PriorityScore  float64              `json:"priority_score"`
	ProcessedAt    time.Time            `json:"processed_at"`
}

// Alert is the record emitted when a classified item crosses the alert
// threshold. It is persisted by the collaborator store.
type Alert struct {
	ID       string      `json:"id"`
	ItemID   string      `json:"item_id"`
	Source   string      `json:"source"`
	Label    HazardLabel `json:"label"`
	Score    float64     `json:"score"`
	Location *Geo        `json:"location,omitempty"`
	IssuedAt time.Time   `json:"issued_at"`
}

// GenerateItemID produces a deterministic ID from a submission's key fields.
// Deterministic IDs enable idempotent upserts downstream and make offline
// queue retries replay-safe: resubmitting the same report produces the same ID.
func GenerateItemID(source, author, text string, ts time.Time) string {
	input := fmt.Sprintf("%s|%s|%s|%d", source, author, text, ts.Unix())
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if source == "" {
		return short
	}
	return source + "-" + short
}
