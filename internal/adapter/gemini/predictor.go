package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/climate-resilience-monitor/internal/domain"
	"github.com/sony/gobreaker/v2"
)

// Breaker defaults: trip after consecutive failures, probe again after the
// cool-down.
const (
	breakerFailureThreshold = 5
	breakerCoolDown         = 60 * time.Second
)

var (
	errNoCandidates  = errors.New("response has no candidates")
	errMissingFields = errors.New("assessment missing required fields")
)

var assessmentSchema = &schema{
	Type: "OBJECT",
	Properties: map[string]*schema{
		"floodProbability": {Type: "NUMBER", Description: "Percentage 0-100"},
		"heatwaveRisk":     {Type: "NUMBER", Description: "Percentage 0-100"},
		"resilienceScore":  {Type: "NUMBER", Description: "Score out of 100"},
		"confidenceScore":  {Type: "NUMBER", Description: "Confidence in this prediction 0-100"},
		"actionPlan": {
			Type:        "ARRAY",
			Items:       &schema{Type: "STRING"},
			Description: "Top 3 priority actions",
		},
		"narrative": {Type: "STRING", Description: "Short summary of the threat level"},
	},
	Required: []string{"floodProbability", "heatwaveRisk", "resilienceScore", "confidenceScore", "actionPlan", "narrative"},
}

// Predictor implements domain.Predictor with a Gemini model constrained to a
// JSON response schema. Calls are not retried; a circuit breaker stops
// hammering an endpoint that keeps failing.
type Predictor struct {
	client  *client
	model   string
	breaker *gobreaker.CircuitBreaker[*domain.RiskAssessment]
	logger  *slog.Logger
}

// NewPredictor creates a Predictor for the given model.
func NewPredictor(apiKey, model string, timeout time.Duration, logger *slog.Logger, opts ...Option) *Predictor {
	p := &Predictor{
		client: newClient(apiKey, timeout, opts),
		model:  model,
		logger: logger,
	}
	p.breaker = gobreaker.NewCircuitBreaker[*domain.RiskAssessment](gobreaker.Settings{
		Name:        "gemini-predictor",
		MaxRequests: 1,
		Timeout:     breakerCoolDown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up says nothing about the endpoint's health.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return p
}

// Predict asks the model for a risk assessment of city under the active
// simulation deltas. weather may be nil, in which case the city's baseline
// climate is sent as context.
func (p *Predictor) Predict(ctx context.Context, city domain.City, sim domain.SimulationParameters, weather *domain.WeatherSnapshot) (*domain.RiskAssessment, error) {
	a, err := p.breaker.Execute(func() (*domain.RiskAssessment, error) {
		return p.predict(ctx, city, sim, weather)
	})
	if err != nil {
		return nil, fmt.Errorf("predict %s: %w", city.Name, err)
	}
	return a, nil
}

func (p *Predictor) predict(ctx context.Context, city domain.City, sim domain.SimulationParameters, weather *domain.WeatherSnapshot) (*domain.RiskAssessment, error) {
	req := generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: buildPrompt(city, sim, weather)}},
		}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   assessmentSchema,
		},
	}

	resp, err := p.client.generate(ctx, p.model, req)
	if err != nil {
		return nil, err
	}

	parts := resp.firstParts()
	if len(parts) == 0 {
		return nil, errNoCandidates
	}
	return parseAssessment(parts[0].Text)
}

func buildPrompt(city domain.City, sim domain.SimulationParameters, weather *domain.WeatherSnapshot) string {
	var b strings.Builder
	b.WriteString("Act as a senior climate disaster management officer.\n")
	fmt.Fprintf(&b, "Analyze climate resilience for %s, %s, India.\n", city.Name, city.State)
	if weather != nil {
		fmt.Fprintf(&b, "REAL-TIME DATA: Current Temp: %.1f°C, Humidity: %.0f%%, Wind: %.1fm/s, Condition: %s.\n",
			weather.Temp, weather.Humidity, weather.WindSpeed, weather.Description)
	} else {
		fmt.Fprintf(&b, "HISTORICAL DATA ONLY: Temp: %.1f°C, Rainfall: %.0fmm.\n", city.Temp, city.Rainfall)
	}
	active := sim.Active()
	fmt.Fprintf(&b, "SIMULATION PARAMETERS: Additional Rainfall: %.0fmm, Heat Rise: %.1f°C.\n",
		active.RainfallDelta, active.TemperatureDelta)
	b.WriteString("Predict flood probability, heatwave risk, and provide a 3-point specific action plan for city administrators. ")
	b.WriteString("Assign a confidence score (0-100) to your prediction based on the data quality provided. ")
	b.WriteString("Consider current Indian monsoon patterns and local geography.")
	return b.String()
}

// assessmentPayload uses pointers so absent fields can be told apart from zeros.
type assessmentPayload struct {
	FloodProbability *float64 `json:"floodProbability"`
	HeatwaveRisk     *float64 `json:"heatwaveRisk"`
	ResilienceScore  *float64 `json:"resilienceScore"`
	ConfidenceScore  *float64 `json:"confidenceScore"`
	ActionPlan       []string `json:"actionPlan"`
	Narrative        *string  `json:"narrative"`
}

func parseAssessment(text string) (*domain.RiskAssessment, error) {
	var p assessmentPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &p); err != nil {
		return nil, fmt.Errorf("decode assessment: %w", err)
	}

	var missing []string
	if p.FloodProbability == nil {
		missing = append(missing, "floodProbability")
	}
	if p.HeatwaveRisk == nil {
		missing = append(missing, "heatwaveRisk")
	}
	if p.ResilienceScore == nil {
		missing = append(missing, "resilienceScore")
	}
	if p.ConfidenceScore == nil {
		missing = append(missing, "confidenceScore")
	}
	if p.ActionPlan == nil {
		missing = append(missing, "actionPlan")
	}
	if p.Narrative == nil {
		missing = append(missing, "narrative")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", errMissingFields, strings.Join(missing, ", "))
	}

	return &domain.RiskAssessment{
		FloodProbability: *p.FloodProbability,
		HeatwaveRisk:     *p.HeatwaveRisk,
		ResilienceScore:  *p.ResilienceScore,
		ConfidenceScore:  *p.ConfidenceScore,
		ActionPlan:       p.ActionPlan,
		Narrative:        *p.Narrative,
	}, nil
}
