// Package domain defines the activity profiles and the sampling model used to fabricate fitness events.
package domain

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidActivity is returned when an activity name is not part of the catalog.
	ErrInvalidActivity = errors.New("activity not in catalog")
	// ErrInvalidProfile indicates a catalog entry with inverted, unbounded or non-finite ranges, or a bad weight.
	ErrInvalidProfile = errors.New("invalid activity profile")
	// ErrEmptyRoster is returned when no user ids are available to pick from.
	ErrEmptyRoster = errors.New("user roster is empty")
)

// IntRange is an inclusive integer interval.
type IntRange struct {
	Min int
	Max int
}

// FloatRange is an inclusive real interval.
type FloatRange struct {
	Min float64
	Max float64
}

// ActivityProfile describes the statistical shape of one kind of activity.
type ActivityProfile struct {
	Name           string
	Steps          IntRange
	HeartRate      IntRange
	CaloriesPerMin FloatRange
	Weight         float64 // relative likelihood, normalised at selection time
}

// FitnessEvent is a single generated tracker reading.
type FitnessEvent struct {
	ID           uuid.UUID
	UserID       int
	ActivityType string
	Steps        int
	HeartRate    int
	Calories     float64
	GeneratedAt  time.Time
}

// Metrics is the sampled triple for one activity.
type Metrics struct {
	Steps     int
	HeartRate int
	Calories  float64
}

// DefaultUserIDs is the static roster events are attributed to.
var DefaultUserIDs = []int{1, 2, 3, 4, 5}

// DefaultCatalog returns the built-in activity profiles in a fixed order.
func DefaultCatalog() []ActivityProfile {
	return []ActivityProfile{
		{Name: "sleeping", Steps: IntRange{0, 0}, HeartRate: IntRange{50, 65}, CaloriesPerMin: FloatRange{0.8, 1.2}, Weight: 0.15},
		{Name: "resting", Steps: IntRange{0, 5}, HeartRate: IntRange{60, 75}, CaloriesPerMin: FloatRange{1.0, 1.5}, Weight: 0.20},
		{Name: "walking", Steps: IntRange{80, 120}, HeartRate: IntRange{75, 100}, CaloriesPerMin: FloatRange{3.0, 5.0}, Weight: 0.35},
		{Name: "running", Steps: IntRange{140, 180}, HeartRate: IntRange{120, 160}, CaloriesPerMin: FloatRange{8.0, 12.0}, Weight: 0.15},
		{Name: "cycling", Steps: IntRange{0, 10}, HeartRate: IntRange{90, 130}, CaloriesPerMin: FloatRange{5.0, 9.0}, Weight: 0.15},
	}
}

// Validate checks range ordering, finiteness and weight positivity.
func (p ActivityProfile) Validate() error {
	switch {
	case p.Name == "":
		return errors.New("profile name is empty")
	case p.Steps.Min > p.Steps.Max:
		return errors.New("steps range is inverted")
	case !p.Steps.sampleable():
		return errors.New("steps range is too wide")
	case p.HeartRate.Min > p.HeartRate.Max:
		return errors.New("heart rate range is inverted")
	case !p.HeartRate.sampleable():
		return errors.New("heart rate range is too wide")
	case !p.CaloriesPerMin.finite():
		return errors.New("calories range must be finite")
	case p.CaloriesPerMin.Min > p.CaloriesPerMin.Max:
		return errors.New("calories range is inverted")
	case !(p.Weight > 0) || math.IsInf(p.Weight, 0):
		return errors.New("weight must be positive and finite")
	}
	return nil
}

// sampleable reports whether Max-Min+1 fits in an int. Max-Min wraps negative on overflow.
func (r IntRange) sampleable() bool {
	span := r.Max - r.Min
	return span >= 0 && span < math.MaxInt
}

func (r FloatRange) finite() bool {
	for _, v := range []float64{r.Min, r.Max, r.Max - r.Min} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
