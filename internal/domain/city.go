package domain

import (
	"errors"
	"strings"
)

// ErrUnknownCity is returned when a city ID or name is not in the catalog.
var ErrUnknownCity = errors.New("unknown city")

// CityStatus is the coarse risk label shown on the map.
type CityStatus string

const (
	StatusSafe     CityStatus = "Safe"
	StatusWarning  CityStatus = "Warning"
	StatusCritical CityStatus = "Critical"
)

// City is static reference data for a monitored city. Baseline values are
// long-run climate averages used when no live reading is available.
type City struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	State     string     `json:"state"`
	Lat       float64    `json:"lat"`
	Lon       float64    `json:"lon"`
	Temp      float64    `json:"temp"`     // °C
	Rainfall  float64    `json:"rainfall"` // mm
	Humidity  float64    `json:"humidity"` // %
	FloodRisk float64    `json:"flood_risk"`
	HeatRisk  float64    `json:"heat_risk"`
	Status    CityStatus `json:"status"`
}

var cities = []City{
	{ID: "1", Name: "Delhi", State: "Delhi", Lat: 28.6139, Lon: 77.2090, Temp: 42, Rainfall: 12, Humidity: 20, FloodRisk: 15, HeatRisk: 85, Status: StatusWarning},
	{ID: "2", Name: "Mumbai", State: "Maharashtra", Lat: 19.0760, Lon: 72.8777, Temp: 31, Rainfall: 250, Humidity: 85, FloodRisk: 90, HeatRisk: 20, Status: StatusCritical},
	{ID: "3", Name: "Bengaluru", State: "Karnataka", Lat: 12.9716, Lon: 77.5946, Temp: 28, Rainfall: 45, Humidity: 60, FloodRisk: 30, HeatRisk: 10, Status: StatusSafe},
	{ID: "4", Name: "Chennai", State: "Tamil Nadu", Lat: 13.0827, Lon: 80.2707, Temp: 35, Rainfall: 110, Humidity: 75, FloodRisk: 65, HeatRisk: 50, Status: StatusWarning},
	{ID: "5", Name: "Kolkata", State: "West Bengal", Lat: 22.5726, Lon: 88.3639, Temp: 33, Rainfall: 180, Humidity: 80, FloodRisk: 75, HeatRisk: 30, Status: StatusWarning},
	{ID: "6", Name: "Hyderabad", State: "Telangana", Lat: 17.3850, Lon: 78.4867, Temp: 39, Rainfall: 25, Humidity: 35, FloodRisk: 20, HeatRisk: 70, Status: StatusWarning},
	{ID: "7", Name: "Ahmedabad", State: "Gujarat", Lat: 23.0225, Lon: 72.5714, Temp: 44, Rainfall: 5, Humidity: 15, FloodRisk: 5, HeatRisk: 95, Status: StatusCritical},
}

// Cities returns a copy of the monitored city catalog in display order.
func Cities() []City {
	out := make([]City, len(cities))
	copy(out, cities)
	return out
}

// CityByID looks up a catalog city by its ID.
func CityByID(id string) (City, error) {
	for _, c := range cities {
		if c.ID == id {
			return c, nil
		}
	}
	return City{}, ErrUnknownCity
}

// CityByName looks up a catalog city by display name, ignoring case.
func CityByName(name string) (City, error) {
	for _, c := range cities {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return City{}, ErrUnknownCity
}
