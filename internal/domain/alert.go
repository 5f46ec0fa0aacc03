package domain

import (
	"fmt"
	"time"
)

// HazardType classifies an alert.
type HazardType string

const (
	HazardFlood      HazardType = "Flood Warning"
	HazardHeatwave   HazardType = "Heatwave Warning"
	HazardCyclone    HazardType = "Cyclone Warning"
	HazardRain       HazardType = "Extreme Rainfall"
	HazardAirQuality HazardType = "Air Quality Alert"
)

// Severity is the alert tier, ordered Low < Moderate < High < Severe.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityModerate Severity = "Moderate"
	SeverityHigh     Severity = "High"
	SeveritySevere   Severity = "Severe"
)

// Provenance records how an alert came to exist.
type Provenance string

const (
	ProvenanceSeeded  Provenance = "seeded"
	ProvenanceDerived Provenance = "derived"
)

// Alert is a hazard notice for a city.
type Alert struct {
	ID           string     `json:"id"`
	CityID       string     `json:"city_id"`
	City         string     `json:"city"`
	Type         HazardType `json:"type"`
	Severity     Severity   `json:"severity"`
	Message      string     `json:"message"`
	Instructions []string   `json:"instructions"`
	Timestamp    time.Time  `json:"timestamp"`
	Active       bool       `json:"active"`
	ImageURL     string     `json:"image_url,omitempty"`
	Provenance   Provenance `json:"provenance"`
}

// Derived reports whether the alert was computed from conditions rather than
// seeded at startup.
func (a Alert) Derived() bool {
	return a.Provenance == ProvenanceDerived
}

// BriefingText is the sentence read out for a voice briefing.
func (a Alert) BriefingText() string {
	return fmt.Sprintf("%s %s in %s. %s", a.Severity, a.Type, a.City, a.Message)
}

// hazardSlugs name each hazard in derived alert IDs.
var hazardSlugs = map[HazardType]string{
	HazardFlood:      "flood",
	HazardHeatwave:   "heat",
	HazardCyclone:    "cyclone",
	HazardRain:       "rain",
	HazardAirQuality: "air",
}

// DerivedAlertID returns the deterministic ID shared by every derivation of
// the given hazard for a city.
func DerivedAlertID(hazard HazardType, cityID string) string {
	return fmt.Sprintf("dynamic-%s-%s", hazardSlugs[hazard], cityID)
}

// imageLibrary holds the illustrative scans attached to alerts, four per hazard.
var imageLibrary = map[HazardType][]string{
	HazardFlood: {
		"https://images.unsplash.com/photo-1547683905-f686c993aae5?auto=format&fit=crop&q=80&w=1200",
		"https://images.unsplash.com/photo-1508802035342-430f52cf563b?auto=format&fit=crop&q=80&w=1200",
		"https://images.unsplash.com/photo-1444491741275-3747c53c99b4?auto=format&fit=crop&q=80&w=1200",
		"https://images.unsplash.com/photo-1578301978693-85fa9c0320b9?auto=format&fit=crop&q=80&w=1200",
	},
	HazardHeatwave: {
		"https://images.unsplash.com/photo-1545464526-f3684a8964e7?auto=format&fit=crop&q=80&w=1200",
		"https://images.unsplash.com/photo-1504386106331-3e4e71712b38?auto=format&fit=crop&q=80&w=1200",
		"https://images.unsplash.com/photo-1516393433555-66774e797a26?auto=format&fit=crop&q=80&w=1200",
		"https://images.unsplash.com/photo-1524168272322-bf73616d99af?auto=format&fit=crop&q=80&w=1200",
	},
	HazardCyclone: {
		"https://images.unsplash.com/photo-1590055531615-f16d36fed8f4?auto=format&fit=crop&q=80&w=1200",
		"https://images.unsplash.com/photo-1516912481808-340ff1b52f8d?auto=format&fit=crop&q=80&w=1200",
		"https://images.unsplash.com/photo-1527482797697-87c5f03023da?auto=format&fit=crop&q=80&w=1200",
		"https://images.unsplash.com/photo-1534088568595-a066f77ec282?auto=format&fit=crop&q=80&w=1200",
	},
	HazardRain: {
		"https://images.unsplash.com/photo-1515694346937-94d85e41e6f0?auto=format&fit=crop&q=80&w=1200",
		"https://images.unsplash.com/photo-1534274988757-a28bf1f539cf?auto=format&fit=crop&q=80&w=1200",
		"https://images.unsplash.com/photo-1501999635878-71cb73f1e74c?auto=format&fit=crop&q=80&w=1200",
		"https://images.unsplash.com/photo-1438449805896-28a666819a20?auto=format&fit=crop&q=80&w=1200",
	},
	HazardAirQuality: {
		"https://images.unsplash.com/photo-1510672981848-a1c4f1cb5ccf?auto=format&fit=crop&q=80&w=1200",
		"https://images.unsplash.com/photo-1445217143695-46712403d776?auto=format&fit=crop&q=80&w=1200",
		"https://images.unsplash.com/photo-1498084393753-b411b2d26b34?auto=format&fit=crop&q=80&w=1200",
		"https://images.unsplash.com/photo-1506606401543-2e73d0ad78c3?auto=format&fit=crop&q=80&w=1200",
	},
}

// Images returns the illustrative image set for a hazard.
func Images(hazard HazardType) []string {
	return imageLibrary[hazard]
}

// safetyProtocols are the standing instructions attached to each hazard's alerts.
var safetyProtocols = map[HazardType][]string{
	HazardHeatwave: {
		"Hydrate continuously, even without thirst. Add ORS, lassi or salted buttermilk to replace lost minerals.",
		"Move strenuous outdoor work and travel to before 10:00 or after 17:00.",
		"Cool living spaces passively with khus mats, damp curtains and fans; keep rooms dark during peak hours.",
		"Watch for nausea, confusion or dry skin. These signal heatstroke: call 108 immediately.",
		"Keep children and the elderly in the coolest room with constant access to fluids.",
		"Avoid heavy, spicy or high-protein meals; prefer water-rich fruit such as watermelon.",
	},
	HazardFlood: {
		"If water reaches your street, move to the top floor or terrace with your emergency kit.",
		"Unplug every appliance. Submerged live sockets electrify the water around them.",
		"Treat floodwater as hazardous waste and wash any skin contact with antiseptic soap.",
		"Put phones in power-saving mode and prefer text messages over calls on congested networks.",
		"Floods displace snakes and scorpions; check corners and raised spots before reaching in.",
		"Drink and brush only with bottled or boiled water to avoid water-borne outbreaks.",
	},
	HazardCyclone: {
		"Within 5km of the coast, evacuate to high-ground shelters when surge forecasts exceed 1.5m.",
		"Secure loose fixtures such as dishes and signboards, and brace doors and windows against 90 km/h gusts.",
		"Shelter in the strongest windowless interior room as sustained winds build.",
		"Expect 200mm+ of rain in 24h with the cyclone bands; protect ground-floor assets from flash floods.",
		"If the wind suddenly stops, the eye is overhead. Stay sheltered for the reversed second half.",
		"Treat receding surge water as contaminated and avoid contact with it.",
	},
	HazardRain: {
		"Take permanent shelter at once; stay away from metal structures, trees and open high ground.",
		"Keep clear of open manholes and storm drains; visibility drops to zero in heavy downpours.",
		"Pull over with hazard lights on if wipers cannot keep the windshield clear.",
		"Report fresh cracks or falling plaster in older buildings immediately.",
		"In hill areas, evacuate at the first sign of flowing mud, tilting trees or rumbling.",
		"Flooded roads hide deep potholes; keep to known routes behind heavy vehicles.",
	},
	HazardAirQuality: {
		"Wear an N95/FFP2 mask outdoors; surgical masks do not stop PM2.5.",
		"Run HEPA purifiers indoors and avoid incense, candles or mosquito coils.",
		"Suspend outdoor exercise; heavy breathing multiplies particulate intake.",
		"Rinse nasal passages with saline twice a day.",
		"Indoor plants help marginally; rely on mechanical filtration during severe smog.",
		"Report open waste burning and construction dust to the municipal grievance cell.",
	},
}

// SafetyProtocol returns a copy of the standing instructions for a hazard.
func SafetyProtocol(hazard HazardType) []string {
	src := safetyProtocols[hazard]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// SeedAlerts returns the alerts loaded at session start.
func SeedAlerts() []Alert {
	now := clock.Now()
	return []Alert{
		{
			ID:       "a1",
			CityID:   "2",
			City:     "Mumbai",
			Type:     HazardFlood,
			Severity: SeveritySevere,
			Message:  "Extreme high tide combined with heavy precipitation. Evacuation of low-lying areas has begun.",
			Instructions: []string{
				"Move to designated relief centres on higher ground.",
				"Switch off main power and gas lines before leaving.",
				"Do not drive or walk through floodwater; 15cm of water can stall a vehicle.",
			},
			Timestamp:  now,
			Active:     true,
			ImageURL:   imageLibrary[HazardFlood][0],
			Provenance: ProvenanceSeeded,
		},
		{
			ID:       "a2",
			CityID:   "1",
			City:     "Delhi",
			Type:     HazardHeatwave,
			Severity: SeverityHigh,
			Message:  "Temperatures expected to reach 45°C. Stay indoors between 11:00 and 16:00.",
			Instructions: []string{
				"Drink at least 4 litres of water a day, with ORS or nimbu paani.",
				"Wear light, loose cotton clothing and carry an umbrella outdoors.",
				"Seek medical aid at once for dizziness or a racing pulse.",
			},
			Timestamp:  now.Add(-time.Hour),
			Active:     true,
			ImageURL:   imageLibrary[HazardHeatwave][0],
			Provenance: ProvenanceSeeded,
		},
	}
}
