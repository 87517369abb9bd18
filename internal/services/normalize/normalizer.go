package normalize

import (
	"errors"
	"fmt"

	"SectorPulse/internal/domain/models"
	domsvc "SectorPulse/internal/domain/service"
)

var (
	// ErrInvalidSeverity is returned when an event carries a severity label
	// outside the recognized set.
	ErrInvalidSeverity = errors.New("invalid severity")
	// ErrMissingTimestamp is returned when an event lacks a usable date.
	ErrMissingTimestamp = errors.New("missing timestamp")
)

// Scale maps severity labels to impact magnitudes. Must be strictly
// increasing from low to critical.
type Scale struct {
	Low      float64
	Medium   float64
	High     float64
	Critical float64
}

// DefaultScale is the ordinal severity scale used when a sector does not
// configure its own.
func DefaultScale() Scale {
	return Scale{Low: 1, Medium: 3, High: 6, Critical: 9}
}

// Validate rejects scales that are not strictly increasing or not positive.
func (s Scale) Validate() error {
	if s.Low <= 0 {
		return fmt.Errorf("severity scale: low must be positive, got %v", s.Low)
	}
	if !(s.Low < s.Medium && s.Medium < s.High && s.High < s.Critical) {
		return fmt.Errorf("severity scale must be strictly increasing: %v", s)
	}
	return nil
}

// EventNormalizer scores raw domain events on a configured severity scale.
// It is a pure function of its input: no I/O, no shared state.
type EventNormalizer struct {
	scale Scale
}

// New creates a normalizer; an invalid scale is an error so misconfiguration
// is caught at startup rather than per event.
func New(scale Scale) (*EventNormalizer, error) {
	if err := scale.Validate(); err != nil {
		return nil, err
	}
	return &EventNormalizer{scale: scale}, nil
}

// Normalize converts a raw event into a scored event.
// Score = magnitude(severity) × sign(impact).
func (n *EventNormalizer) Normalize(e models.RawEvent) (models.ScoredEvent, error) {
	if e.Timestamp.IsZero() {
		return models.ScoredEvent{}, fmt.Errorf("event %q: %w", e.ID, ErrMissingTimestamp)
	}

	mag, err := n.magnitude(e.Severity)
	if err != nil {
		return models.ScoredEvent{}, fmt.Errorf("event %q: %w", e.ID, err)
	}

	cat := e.Category
	switch cat {
	case models.CategoryConflict, models.CategoryRegulation, models.CategoryHealth:
	default:
		cat = models.CategoryOther
	}

	return models.ScoredEvent{
		Timestamp: e.Timestamp,
		Score:     mag * sign(e.Impact),
		Category:  cat,
		Region:    e.Region,
		Metadata:  e.Metadata,
	}, nil
}

func (n *EventNormalizer) magnitude(s models.Severity) (float64, error) {
	switch s {
	case models.SeverityLow:
		return n.scale.Low, nil
	case models.SeverityMedium:
		return n.scale.Medium, nil
	case models.SeverityHigh:
		return n.scale.High, nil
	case models.SeverityCritical:
		return n.scale.Critical, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidSeverity, s)
	}
}

func sign(i models.Impact) float64 {
	switch i {
	case models.ImpactPositive:
		return 1
	case models.ImpactNegative:
		return -1
	default:
		return 0
	}
}

var _ domsvc.Normalizer = (*EventNormalizer)(nil)
