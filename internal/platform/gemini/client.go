// Package gemini estimates the nutrition of free-text meal descriptions with
// the Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"nutriflow/internal/nutrition"
)

// ErrNotFood is returned when the model decides the description is not food.
var ErrNotFood = errors.New("description does not look like food")

// Estimate is the model's guess of a meal's nutrition.
type Estimate struct {
	Name string `json:"name"`
	nutrition.Macros
}

// Client is a client for the Gemini API.
type Client struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewClient creates a new Gemini client.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	model := client.GenerativeModel("gemini-1.5-flash")
	model.ResponseMIMEType = "application/json"
	return &Client{client: client, model: model}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}

const estimatePrompt = "Estimate the nutrition of the meal described below. " +
	"Return a single, clean JSON object with the keys 'name' (string), 'is_food' (boolean), " +
	"'calories' (number, kcal), 'protein', 'carbs' and 'fat' (numbers, grams). " +
	"If the description is not food, set 'is_food' to false and every number to 0. " +
	"The JSON response should not contain any markdown formatting.\n\nMeal: "

// EstimateNutrition asks the model for the calories and macros of description.
func (c *Client) EstimateNutrition(ctx context.Context, description string) (*Estimate, error) {
	resp, err := c.model.GenerateContent(ctx, genai.Text(estimatePrompt+description))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("unexpected response format from Gemini")
	}
	return parseEstimate(string(text))
}

// parseEstimate extracts the JSON object from a model reply, which may be
// wrapped in markdown.
func parseEstimate(reply string) (*Estimate, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start == -1 || end == -1 || start > end {
		return nil, fmt.Errorf("could not find JSON object in response: %s", reply)
	}

	var raw struct {
		Name   string `json:"name"`
		IsFood *bool  `json:"is_food"`
		nutrition.Macros
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal estimate JSON: %w", err)
	}
	if raw.IsFood != nil && !*raw.IsFood {
		return nil, ErrNotFood
	}
	if raw.Macros.IsNegative() {
		return nil, fmt.Errorf("estimate has negative values: %+v", raw.Macros)
	}

	return &Estimate{Name: strings.TrimSpace(raw.Name), Macros: raw.Macros}, nil
}
