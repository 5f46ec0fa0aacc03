package domain

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallbackWeather_StaysWithinBounds(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))

	for _, city := range Cities() {
		for range 200 {
			w := FallbackWeather(city, rng)

			assert.InDelta(t, city.Temp, w.Temp, 2.0, "temp jitter for %s", city.Name)
			assert.GreaterOrEqual(t, w.Humidity, 10.0)
			assert.LessOrEqual(t, w.Humidity, 100.0)
			assert.GreaterOrEqual(t, w.WindSpeed, 4.0)
			assert.LessOrEqual(t, w.WindSpeed, 12.0)
			assert.Equal(t, city.Rainfall, w.Rain)
			assert.Equal(t, SourceFallback, w.Source)
		}
	}
}

func TestFallbackWeather_HumidityClamped(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))

	dry := FallbackWeather(City{Temp: 30, Humidity: 0}, rng)
	wet := FallbackWeather(City{Temp: 30, Humidity: 150}, rng)

	assert.Equal(t, 10.0, dry.Humidity)
	assert.Equal(t, 100.0, wet.Humidity)
}

func TestFallbackWeather_ConditionFollowsBaselineHeat(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))

	hot := FallbackWeather(City{Temp: 40, Humidity: 20}, rng)
	mild := FallbackWeather(City{Temp: 30, Humidity: 20}, rng)

	assert.Equal(t, "01d", hot.Icon)
	assert.Equal(t, "Clear", hot.Condition)
	assert.Equal(t, "03d", mild.Icon)
	assert.Equal(t, "Clouds", mild.Condition)
}

func TestFallbackWeather_SameSeedSameReading(t *testing.T) {
	city := Cities()[0]

	a := FallbackWeather(city, rand.New(rand.NewPCG(9, 9)))
	b := FallbackWeather(city, rand.New(rand.NewPCG(9, 9)))

	assert.Equal(t, a.Temp, b.Temp)
	assert.Equal(t, a.Humidity, b.Humidity)
	assert.Equal(t, a.WindSpeed, b.WindSpeed)
}
