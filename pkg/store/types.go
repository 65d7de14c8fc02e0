package store

// Document represents a retrieved chunk of medical reference text.
type Document struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	Source  string  `json:"source"`
}

// WeatherContext is a weather snapshot plus the derived exercise advisory.
// The four advisory fields are set atomically: either Advise populated all of
// them or none (Advised reports which).
type WeatherContext struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Condition   string  `json:"condition"`

	ExerciseRecommendation string `json:"exercise_recommendation"`
	IntensityLevel         string `json:"intensity_level"`
	WeatherAlert           bool   `json:"weather_alert"`
	Reasoning              string `json:"reasoning"`
}

// Advised reports whether the advisory fields have been populated. Reasoning
// is always non-empty when the advisory was derived, so it stands in for the
// whole set.
func (w *WeatherContext) Advised() bool {
	return w != nil && w.ExerciseRecommendation != "" && w.IntensityLevel != "" && w.Reasoning != ""
}

const (
	ExerciseIndoor  = "Indoor"
	ExerciseOutdoor = "Outdoor"

	IntensityLow      = "Low"
	IntensityModerate = "Moderate"
	IntensityHigh     = "High"
)
