// Package nutritionix is a client for the Nutritionix food search and
// natural-language nutrients endpoints.
package nutritionix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"nutriflow/internal/catalog"
)

// DefaultBaseURL is the public Nutritionix API.
const DefaultBaseURL = "https://trackapi.nutritionix.com/v2"

// Client calls the Nutritionix API with an application id and key.
type Client struct {
	httpClient *http.Client
	baseURL    string
	appID      string
	appKey     string
}

// NewClient creates a client for the public API.
func NewClient(appID, appKey string) *Client {
	return NewClientWithURL(DefaultBaseURL, appID, appKey)
}

// NewClientWithURL creates a client for a Nutritionix-compatible API at baseURL.
func NewClientWithURL(baseURL, appID, appKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
		appID:      appID,
		appKey:     appKey,
	}
}

// CommonFood is a generic food from instant search.
type CommonFood struct {
	FoodName    string  `json:"food_name"`
	ServingUnit string  `json:"serving_unit"`
	ServingQty  float64 `json:"serving_qty"`
	TagID       string  `json:"tag_id"`
}

// BrandedFood is a branded product from instant search.
type BrandedFood struct {
	FoodName    string  `json:"food_name"`
	BrandName   string  `json:"brand_name"`
	NixItemID   string  `json:"nix_item_id"`
	Calories    float64 `json:"nf_calories"`
	ServingUnit string  `json:"serving_unit"`
	ServingQty  float64 `json:"serving_qty"`
}

// SearchResult is the instant search response.
type SearchResult struct {
	Common  []CommonFood  `json:"common"`
	Branded []BrandedFood `json:"branded"`
}

// NutrientFood is one food parsed from a natural-language query.
type NutrientFood struct {
	FoodName           string  `json:"food_name"`
	ServingQty         float64 `json:"serving_qty"`
	ServingUnit        string  `json:"serving_unit"`
	ServingWeightGrams float64 `json:"serving_weight_grams"`
	Calories           float64 `json:"nf_calories"`
	TotalFat           float64 `json:"nf_total_fat"`
	TotalCarbohydrate  float64 `json:"nf_total_carbohydrate"`
	Protein            float64 `json:"nf_protein"`
}

// Food converts n to a loggable food entry.
func (n NutrientFood) Food() catalog.Food {
	serving := fmt.Sprintf("%g %s", n.ServingQty, n.ServingUnit)
	return catalog.Food{
		Name:     n.FoodName,
		Serving:  serving,
		Calories: n.Calories,
		Protein:  n.Protein,
		Carbs:    n.TotalCarbohydrate,
		Fat:      n.TotalFat,
	}
}

type nutrientsRequest struct {
	Query string `json:"query"`
}

type nutrientsResponse struct {
	Foods []NutrientFood `json:"foods"`
}

// SearchInstant runs an instant search for query.
func (c *Client) SearchInstant(ctx context.Context, query string) (*SearchResult, error) {
	reqURL, err := url.Parse(c.baseURL + "/search/instant")
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	params := reqURL.Query()
	params.Set("query", query)
	reqURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var result SearchResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// NaturalNutrients parses a free-text description such as "2 eggs and toast"
// into foods with nutrition values.
func (c *Client) NaturalNutrients(ctx context.Context, query string) ([]NutrientFood, error) {
	reqBytes, err := json.Marshal(nutrientsRequest{Query: query})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/natural/nutrients", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp nutrientsResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Foods, nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("x-app-id", c.appID)
	req.Header.Set("x-app-key", c.appKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("nutritionix request failed with status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}
