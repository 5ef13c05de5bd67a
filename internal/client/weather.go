package client

import (
	"context"
	"net/url"
)

const weatherPath = "/api/weather"

// WeatherReport is the current weather for one location.
type WeatherReport struct {
	Location    string  `json:"location"`
	Temperature float64 `json:"temperature"`
	Condition   string  `json:"condition"`
	Provider    string  `json:"provider,omitempty"`
}

// Weather fetches current weather for one or more locations.
func (c *Client) Weather(ctx context.Context, locations ...string) ([]WeatherReport, error) {
	q := url.Values{}
	for _, loc := range locations {
		q.Add("location", loc)
	}

	var resp struct {
		Reports []WeatherReport `json:"reports"`
	}
	if err := c.getJSON(ctx, weatherPath+"?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	return resp.Reports, nil
}
