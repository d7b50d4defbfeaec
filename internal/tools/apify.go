package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	commonhttp "gig-recommender/internal/common/http"
	"gig-recommender/internal/common/validation"
)

const (
	GoogleMapsSearchTool = "google_maps_search"

	DefaultApifyBaseURL = "https://api.apify.com/v2"
	GooglePlacesActor   = "compass~crawler-google-places"

	defaultMaxPlaces = 10
	maxMaxPlaces     = 50
)

// ApifyConfig configures the Google Maps search tool.
type ApifyConfig struct {
	BaseURL string
	Token   string
	Actor   string
	Timeout time.Duration
}

// Place is the subset of a Google Maps crawler item handed to the model.
type Place struct {
	Title        string   `json:"title"`
	Category     string   `json:"categoryName,omitempty"`
	Address      string   `json:"address,omitempty"`
	Rating       *float64 `json:"totalScore,omitempty"`
	ReviewsCount int      `json:"reviewsCount,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Website      string   `json:"website,omitempty"`
	URL          string   `json:"url,omitempty"`
	PriceLevel   string   `json:"price,omitempty"`
}

type googleMapsTool struct {
	source string
	config ApifyConfig
	http   *commonhttp.Client
}

// NewGoogleMapsTool runs the Apify Google Maps crawler synchronously and
// returns the scraped places.
func NewGoogleMapsTool(source string, cfg ApifyConfig) Tool {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultApifyBaseURL
	}
	if cfg.Actor == "" {
		cfg.Actor = GooglePlacesActor
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &googleMapsTool{
		source: source,
		config: cfg,
		http:   commonhttp.NewClient(cfg.Timeout).WithHeader("Authorization", "Bearer "+cfg.Token),
	}
}

func (t *googleMapsTool) Definition() Definition {
	return Definition{
		Name:        GoogleMapsSearchTool,
		Description: "Search Google Maps through Apify and return matching places with ratings, review counts and contact details.",
		Source:      "builtin:" + t.source,
		InputSchema: validation.ObjectSchema(map[string]map[string]interface{}{
			"query":     {"type": "string", "minLength": 1, "description": "Search phrase including the area, e.g. coffee shops in Indiranagar, Bangalore"},
			"maxPlaces": {"type": "integer", "minimum": 1, "maximum": maxMaxPlaces, "description": "Upper bound on places returned"},
			"language":  {"type": "string", "description": "Result language code, default en"},
		}, []string{"query"}),
	}
}

type crawlerInput struct {
	SearchStrings []string `json:"searchStringsArray"`
	MaxPlaces     int      `json:"maxCrawledPlacesPerSearch"`
	Language      string   `json:"language"`
}

func (t *googleMapsTool) Invoke(ctx context.Context, args map[string]interface{}) (string, error) {
	input := crawlerInput{
		SearchStrings: []string{stringArg(args, "query", "")},
		MaxPlaces:     intArg(args, "maxPlaces", defaultMaxPlaces),
		Language:      stringArg(args, "language", "en"),
	}

	endpoint := fmt.Sprintf("%s/acts/%s/run-sync-get-dataset-items",
		strings.TrimRight(t.config.BaseURL, "/"), url.PathEscape(t.config.Actor))

	var places []Place
	if err := t.http.PostJSON(ctx, endpoint, input, &places); err != nil {
		return "", fmt.Errorf("apify %s: %w", t.config.Actor, err)
	}

	data, err := json.Marshal(places)
	if err != nil {
		return "", fmt.Errorf("encode places: %w", err)
	}
	return string(data), nil
}

func intArg(args map[string]interface{}, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return fallback
}
