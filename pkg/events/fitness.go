// Package events defines the payloads the generator emits to downstream consumers.
package events

import "time"

// FitnessEventGeneratedType is the event_type header attached to stream records.
const FitnessEventGeneratedType = "fitness.event_generated"

// FitnessEventGenerated mirrors one committed fitness_events row.
type FitnessEventGenerated struct {
	EventID      string    `json:"event_id"`
	UserID       int       `json:"user_id"`
	ActivityType string    `json:"activity_type"`
	Steps        int       `json:"steps"`
	HeartRate    int       `json:"heart_rate"`
	Calories     float64   `json:"calories"`
	GeneratedAt  time.Time `json:"generated_at"`
}
