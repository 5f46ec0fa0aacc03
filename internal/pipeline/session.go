package pipeline

import (
	"fmt"
	"maps"
	"sync"

	"github.com/couchcryptid/climate-resilience-monitor/internal/domain"
	"github.com/google/uuid"
)

// Session is the monitor's single-operator state: the selected city, the
// what-if parameters, the latest fleet readings, the current assessment and
// the alert collection.
type Session struct {
	ID string

	engine *AlertEngine

	mu         sync.RWMutex
	city       domain.City
	simulation domain.SimulationParameters
	weather    map[string]domain.WeatherSnapshot
	assessment *domain.RiskAssessment

	issued uint64 // last generation handed to a refresh
	stored uint64 // generation of the current assessment

	deriveMu sync.Mutex // serializes alert derivation across refreshes
}

// NewSession creates a session focused on the given city.
func NewSession(cityID string, engine *AlertEngine) (*Session, error) {
	city, err := domain.CityByID(cityID)
	if err != nil {
		return nil, fmt.Errorf("default city %q: %w", cityID, err)
	}
	return &Session{
		ID:      uuid.NewString(),
		engine:  engine,
		city:    city,
		weather: make(map[string]domain.WeatherSnapshot),
	}, nil
}

// Engine returns the session's alert engine.
func (s *Session) Engine() *AlertEngine {
	return s.engine
}

// City returns the selected city.
func (s *Session) City() domain.City {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.city
}

// SelectCity switches focus to the city with the given ID. The previous
// city's assessment is discarded.
func (s *Session) SelectCity(id string) (domain.City, error) {
	city, err := domain.CityByID(id)
	if err != nil {
		return domain.City{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if city.ID != s.city.ID {
		s.city = city
		s.assessment = nil
	}
	return city, nil
}

// Simulation returns the current what-if parameters.
func (s *Session) Simulation() domain.SimulationParameters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.simulation
}

// SetSimulation replaces the what-if parameters.
func (s *Session) SetSimulation(p domain.SimulationParameters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.simulation = p
}

// Weather returns a copy of the latest fleet readings keyed by city ID.
func (s *Session) Weather() map[string]domain.WeatherSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.weather)
}

// SetWeather replaces the fleet readings wholesale.
func (s *Session) SetWeather(readings map[string]domain.WeatherSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weather = maps.Clone(readings)
	if s.weather == nil {
		s.weather = make(map[string]domain.WeatherSnapshot)
	}
}

// Assessment returns the current risk assessment, or nil while none exists.
func (s *Session) Assessment() *domain.RiskAssessment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assessment
}

// Prediction returns the current assessment together with the ID of the city
// it belongs to, read under one lock so a concurrent SelectCity cannot pair
// one city's assessment with another's ID. a is nil while none exists.
func (s *Session) Prediction() (cityID string, a *domain.RiskAssessment) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.city.ID, s.assessment
}

// refreshInput is the state a refresh works from, captured at its start.
type refreshInput struct {
	generation uint64
	city       domain.City
	simulation domain.SimulationParameters
	weather    *domain.WeatherSnapshot
}

func (s *Session) beginRefresh() refreshInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	in := refreshInput{
		generation: s.issued,
		city:       s.city,
		simulation: s.simulation,
	}
	if w, ok := s.weather[s.city.ID]; ok {
		in.weather = &w
	}
	return in
}

// storeAssessment records a prediction unless a later-issued refresh already
// stored one or the selected city has changed since the refresh began.
func (s *Session) storeAssessment(in refreshInput, a *domain.RiskAssessment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if in.generation < s.stored || in.city.ID != s.city.ID {
		return false
	}
	s.stored = in.generation
	s.assessment = a
	return true
}

// deriveIfLatest runs derive under the derivation lock unless a later refresh
// has been issued since in began. The latest refresh always derives last.
func (s *Session) deriveIfLatest(in refreshInput, derive func()) bool {
	s.deriveMu.Lock()
	defer s.deriveMu.Unlock()

	s.mu.RLock()
	latest := in.generation == s.issued
	s.mu.RUnlock()
	if !latest {
		return false
	}
	derive()
	return true
}
