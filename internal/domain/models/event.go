package models

import "time"

// Severity is the ordinal severity label attached to a raw domain event.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Impact is the expected market direction of an event.
type Impact string

const (
	ImpactPositive Impact = "positive"
	ImpactNegative Impact = "negative"
	ImpactNeutral  Impact = "neutral"
)

// Category identifies which domain feed an event came from.
type Category string

const (
	CategoryConflict   Category = "conflict"
	CategoryRegulation Category = "regulation"
	CategoryHealth     Category = "health"
	CategoryOther      Category = "other"
)

// RawEvent is a domain event as delivered by the sector feeds
// (conflict updates, regulatory filings, outbreak reports).
type RawEvent struct {
	ID        string
	Timestamp time.Time
	Severity  Severity
	Impact    Impact
	Category  Category
	Region    string
	Metadata  map[string]any
}

// ScoredEvent is a RawEvent reduced to a signed impact score on a timeline.
// Score magnitude reflects severity; sign reflects expected market direction.
type ScoredEvent struct {
	Timestamp time.Time
	Score     float64
	Category  Category
	Region    string
	Metadata  map[string]any
}
