package services

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"time"

	resp "tripflow/internal/models/response_models"
)

type WeatherServiceInterface interface {
	// Forecast returns the summary and the IANA timezone reported for the point.
	Forecast(ctx context.Context, lat, lng float64) (*resp.WeatherSummary, string, error)
}

// OpenMeteoClient reads a 7 day daily forecast from Open-Meteo.
type OpenMeteoClient struct {
	rest restClient
}

func NewOpenMeteoClient(baseURL, userAgent string, timeout time.Duration) *OpenMeteoClient {
	return &OpenMeteoClient{rest: newRestClient(baseURL, userAgent, timeout)}
}

func (c *OpenMeteoClient) Forecast(ctx context.Context, lat, lng float64) (*resp.WeatherSummary, string, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lng, 'f', 4, 64))
	q.Set("daily", "temperature_2m_max,temperature_2m_min,precipitation_sum")
	q.Set("timezone", "auto")
	q.Set("forecast_days", "7")

	var out struct {
		Timezone string `json:"timezone"`
		Daily    struct {
			Max    []float64 `json:"temperature_2m_max"`
			Min    []float64 `json:"temperature_2m_min"`
			Precip []float64 `json:"precipitation_sum"`
		} `json:"daily"`
	}
	if err := c.rest.getJSON(ctx, "/forecast", q, &out); err != nil {
		return nil, "", fmt.Errorf("open-meteo forecast: %w", err)
	}
	if len(out.Daily.Max) == 0 {
		return nil, out.Timezone, fmt.Errorf("open-meteo forecast: no daily data")
	}

	maxT, minT, rain := mean(out.Daily.Max), mean(out.Daily.Min), sum(out.Daily.Precip)
	return &resp.WeatherSummary{
		Summary:         describeWeather(maxT, rain),
		MaxTempC:        round1(maxT),
		MinTempC:        round1(minT),
		PrecipitationMM: round1(rain),
	}, out.Timezone, nil
}

func describeWeather(maxT, weeklyRain float64) string {
	temp := "mild"
	switch {
	case maxT >= 30:
		temp = "hot"
	case maxT >= 22:
		temp = "warm"
	case maxT < 8:
		temp = "cold"
	case maxT < 15:
		temp = "cool"
	}
	wet := "mostly dry"
	switch {
	case weeklyRain > 40:
		wet = "rainy"
	case weeklyRain > 10:
		wet = "some showers"
	}
	return fmt.Sprintf("%s, %s this week", temp, wet)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return sum(xs) / float64(len(xs))
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
