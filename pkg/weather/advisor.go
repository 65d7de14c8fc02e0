package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"health-agent-be/internal/config"
	"health-agent-be/internal/pkg/logger"
	"health-agent-be/pkg/llm"
	"health-agent-be/pkg/store"

	"github.com/kaptinlin/jsonrepair"
)

// weatherDescriptions maps open-meteo weather codes to human-readable labels.
// Unrecognized codes map to "Unknown".
var weatherDescriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Foggy",
	51: "Light drizzle",
	53: "Moderate drizzle",
	61: "Light rain",
	63: "Moderate rain",
	65: "Heavy rain",
}

// alertConditions trigger the weather alert flag in the rule-based fallback.
var alertConditions = map[string]bool{
	"rain":    true,
	"drizzle": true,
	"snow":    true,
	"storm":   true,
	"foggy":   true,
}

// Advisor fetches current weather for a coordinate and derives an exercise
// advisory, preferring the LLM and falling back to a deterministic rule. It
// never fails: any upstream problem degrades to defaults.
type Advisor struct {
	baseURL     string
	timezone    string
	client      *http.Client
	llmProvider llm.LLMProvider
	temperature float64
	logger      logger.ILogger
}

func NewAdvisor(cfg config.WeatherConfig, llmProvider llm.LLMProvider, modelTemperature float64, log logger.ILogger) *Advisor {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Advisor{
		baseURL:     cfg.BaseURL,
		timezone:    cfg.Timezone,
		client:      &http.Client{Timeout: timeout},
		llmProvider: llmProvider,
		temperature: modelTemperature,
		logger:      log,
	}
}

type forecastResponse struct {
	Current *struct {
		Temperature *float64 `json:"temperature_2m"`
		Humidity    *float64 `json:"relative_humidity_2m"`
		WeatherCode *int     `json:"weather_code"`
	} `json:"current"`
}

// Advise returns the weather snapshot for the coordinate merged with the four
// advisory fields. All failure modes produce a usable context.
func (a *Advisor) Advise(ctx context.Context, latitude, longitude float64) *store.WeatherContext {
	wc := a.fetch(ctx, latitude, longitude)
	a.addExerciseRecommendations(ctx, wc)
	return wc
}

// fetch retrieves the current conditions, substituting defaults
// (20°C, 50%, "Unknown") when the forecast service is unreachable or the
// body is malformed.
func (a *Advisor) fetch(ctx context.Context, latitude, longitude float64) *store.WeatherContext {
	wc := &store.WeatherContext{Temperature: 20, Humidity: 50, Condition: "Unknown"}

	q := url.Values{}
	q.Set("latitude", fmt.Sprintf("%g", latitude))
	q.Set("longitude", fmt.Sprintf("%g", longitude))
	q.Set("current", "temperature_2m,relative_humidity_2m,weather_code")
	q.Set("timezone", a.timezone)
	endpoint := fmt.Sprintf("%s/v1/forecast?%s", a.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		a.logger.Warn("WeatherAdvisor", "Failed to build forecast request", map[string]interface{}{"error": err.Error()})
		return wc
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Warn("WeatherAdvisor", "Error retrieving weather data, using defaults", map[string]interface{}{"error": err.Error()})
		return wc
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.logger.Warn("WeatherAdvisor", "Forecast service returned non-200, using defaults", map[string]interface{}{"status": resp.StatusCode})
		return wc
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		a.logger.Warn("WeatherAdvisor", "Failed to read forecast body, using defaults", map[string]interface{}{"error": err.Error()})
		return wc
	}

	var forecast forecastResponse
	if err := json.Unmarshal(bodyBytes, &forecast); err != nil || forecast.Current == nil {
		a.logger.Warn("WeatherAdvisor", "Malformed forecast body, using defaults", nil)
		return wc
	}

	if forecast.Current.Temperature != nil {
		wc.Temperature = *forecast.Current.Temperature
	}
	if forecast.Current.Humidity != nil {
		wc.Humidity = *forecast.Current.Humidity
	}
	if forecast.Current.WeatherCode != nil {
		if label, ok := weatherDescriptions[*forecast.Current.WeatherCode]; ok {
			wc.Condition = label
		}
	}
	return wc
}

type advisory struct {
	ExerciseRecommendation *string `json:"exercise_recommendation"`
	IntensityLevel         *string `json:"intensity_level"`
	WeatherAlert           *bool   `json:"weather_alert"`
	Reasoning              *string `json:"reasoning"`
}

// addExerciseRecommendations asks the LLM for the advisory and applies the
// deterministic fallback rule when the response is unusable.
func (a *Advisor) addExerciseRecommendations(ctx context.Context, wc *store.WeatherContext) {
	prompt := fmt.Sprintf(`Analyze weather conditions (Temperature: %g°C, Condition: %s, Humidity: %g%%) and provide exercise recommendations in JSON format with these exact keys:
- exercise_recommendation: "Indoor" or "Outdoor"
- intensity_level: "Low", "Moderate", or "High"
- weather_alert: true or false
- reasoning: brief explanation
Return only JSON.`, wc.Temperature, wc.Condition, wc.Humidity)

	if a.llmProvider != nil {
		response, err := a.llmProvider.Generate(ctx, prompt, llm.WithTemperature(a.temperature))
		if err == nil {
			if adv, perr := parseAdvisory(response); perr == nil {
				wc.ExerciseRecommendation = *adv.ExerciseRecommendation
				wc.IntensityLevel = *adv.IntensityLevel
				wc.WeatherAlert = *adv.WeatherAlert
				wc.Reasoning = *adv.Reasoning
				return
			} else {
				a.logger.Warn("WeatherAdvisor", "Unusable advisory from LLM, applying rule fallback", map[string]interface{}{"error": perr.Error()})
			}
		} else {
			a.logger.Warn("WeatherAdvisor", "LLM advisory call failed, applying rule fallback", map[string]interface{}{"error": err.Error()})
		}
	}

	applyFallbackAdvisory(wc)
}

// parseAdvisory decodes the LLM response, repairing fenced or slightly broken
// JSON first. Any missing key counts as a parse failure.
func parseAdvisory(response string) (*advisory, error) {
	raw := strings.TrimSpace(response)

	var adv advisory
	if err := json.Unmarshal([]byte(raw), &adv); err != nil {
		fixed, rerr := jsonrepair.JSONRepair(raw)
		if rerr != nil {
			return nil, fmt.Errorf("advisory is not JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(fixed), &adv); err != nil {
			return nil, fmt.Errorf("advisory is not JSON after repair: %w", err)
		}
	}

	if adv.ExerciseRecommendation == nil || adv.IntensityLevel == nil || adv.WeatherAlert == nil || adv.Reasoning == nil {
		return nil, fmt.Errorf("advisory JSON missing required keys")
	}
	return &adv, nil
}

// applyFallbackAdvisory derives the advisory from the deterministic rule:
// Indoor when hotter than 30°C or colder than 5°C, Moderate intensity only in
// the 15–25°C band, alert on wet or foggy conditions.
func applyFallbackAdvisory(wc *store.WeatherContext) {
	setting := store.ExerciseOutdoor
	if wc.Temperature > 30 || wc.Temperature < 5 {
		setting = store.ExerciseIndoor
	}
	intensity := store.IntensityLow
	if wc.Temperature >= 15 && wc.Temperature <= 25 {
		intensity = store.IntensityModerate
	}

	wc.ExerciseRecommendation = setting
	wc.IntensityLevel = intensity
	wc.WeatherAlert = alertConditions[strings.ToLower(wc.Condition)]
	wc.Reasoning = fmt.Sprintf("Based on %g°C and %s conditions, recommend %s exercise at %s intensity.",
		wc.Temperature, wc.Condition, strings.ToLower(setting), strings.ToLower(intensity))
}
