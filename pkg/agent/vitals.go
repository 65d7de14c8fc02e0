package agent

import (
	"context"
	"fmt"
	"math"

	"health-agent-be/internal/config"
	"health-agent-be/internal/pkg/logger"
	"health-agent-be/pkg/store"
)

// WeatherAdvisor produces a weather snapshot with the exercise advisory for a
// coordinate. It never fails; on service trouble it returns defaults.
type WeatherAdvisor interface {
	Advise(ctx context.Context, latitude, longitude float64) *store.WeatherContext
}

// VitalsEvaluator classifies heart rate, sleep, and steps against the
// configured ranges, and seeds the weather context when the run started
// without one. It has no error path: missing inputs read as zero.
type VitalsEvaluator struct {
	cfg        config.HealthConfig
	advisor    WeatherAdvisor
	defaultLat float64
	defaultLon float64
	logger     logger.ILogger
}

func NewVitalsEvaluator(cfg config.HealthConfig, weatherCfg config.WeatherConfig, advisor WeatherAdvisor, log logger.ILogger) *VitalsEvaluator {
	return &VitalsEvaluator{
		cfg:        cfg,
		advisor:    advisor,
		defaultLat: weatherCfg.DefaultLatitude,
		defaultLon: weatherCfg.DefaultLongitude,
		logger:     log,
	}
}

func (e *VitalsEvaluator) Name() string {
	return "HealthMetrics"
}

func (e *VitalsEvaluator) Process(ctx context.Context, state *SessionState) error {
	h := &state.Health

	// 7-day averages take precedence as a whole record, keyed on the
	// heart-rate average being present. All three canonical fields are
	// mirrored from the averaged set; a missing average reads as zero
	// rather than falling back to the instantaneous value.
	if h.HeartRateAvg7d != nil {
		h.HeartRate = *h.HeartRateAvg7d
		h.SleepHours = 0
		h.Steps = 0
		if h.SleepAvg7d != nil {
			h.SleepHours = *h.SleepAvg7d
		}
		if h.StepsAvg7d != nil {
			h.Steps = int(math.Round(*h.StepsAvg7d))
		}
	}

	status := map[string]string{
		"heart_rate": e.classifyHeartRate(h.HeartRate),
		"sleep":      e.classifySleep(h.SleepHours),
		"activity":   e.classifyActivity(h.Steps),
	}

	if !state.WeatherAdvised() {
		e.logger.Info("VitalsEvaluator", "Weather context missing, fetching for default coordinate", map[string]interface{}{
			"latitude":  e.defaultLat,
			"longitude": e.defaultLon,
		})
		state.SetWeather(e.advisor.Advise(ctx, e.defaultLat, e.defaultLon))
	}

	state.SetVitals(status)

	state.SetStageNote(e.Name(), fmt.Sprintf(
		"Vitals classified: heart rate %s, sleep %s, activity %s.",
		status["heart_rate"], status["sleep"], status["activity"],
	))
	state.SetStatus(StatusVitalsEvaluated)
	return nil
}

func (e *VitalsEvaluator) classifyHeartRate(v float64) string {
	if v >= e.cfg.HeartRateMin && v <= e.cfg.HeartRateMax {
		return "Normal"
	}
	return "Abnormal"
}

func (e *VitalsEvaluator) classifySleep(hours float64) string {
	if hours >= e.cfg.SleepOptimalMin && hours <= e.cfg.SleepOptimalMax {
		return "Optimal"
	}
	return "Suboptimal"
}

func (e *VitalsEvaluator) classifyActivity(steps int) string {
	if steps >= e.cfg.ActivityThreshold {
		return "Active"
	}
	return "Sedentary"
}
