package healthdata

import "time"

// Record is the fixed-shape telemetry record produced by the synthetic source.
// A real wearable integration would return the same shape.
type Record struct {
	HeartRate   float64   `json:"heart_rate"`
	Steps       int       `json:"steps"`
	SleepHours  float64   `json:"sleep_hours"`
	Calories    int       `json:"calories"`
	LastUpdated time.Time `json:"last_updated"`
}

// Generate returns synthetic health/fitness data for testing and demos.
func Generate() Record {
	return Record{
		HeartRate:   75,
		Steps:       8500,
		SleepHours:  7.5,
		Calories:    2100,
		LastUpdated: time.Now(),
	}
}
