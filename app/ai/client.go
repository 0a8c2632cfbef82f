package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/thorntonevents/ingest/app/events"
)

// Client turns unstructured text into structured records via a hosted
// chat-completion API. This is a best-effort, non-deterministic parsing
// strategy; callers treat a failure as zero results for the step, never as
// something to retry.
type Client struct {
	oa    openai.Client
	model string
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		oa:    openai.NewClient(option.WithAPIKey(apiKey)),
		model: model,
	}
}

const eventSystemPrompt = `You extract community event listings from municipal calendar page text.
Respond with a JSON array only, no prose and no markdown. Each element:
{"title": string, "description": string, "start_time": string (ISO 8601, e.g. "2026-09-19T16:00:00"),
"end_time": string or "", "venue": string, "city": string, "state": string,
"url": string, "category": string, "price_text": string}
Omit nothing you can see; leave unknown fields as empty strings. Never invent events.`

// ExtractEvents sends the reduced page text to the model and parses the JSON
// reply into candidates. hints carries date estimates for known recurring
// annual events, preformatted one per line.
func (c *Client) ExtractEvents(ctx context.Context, content string, hints string) ([]events.Candidate, error) {
	system := eventSystemPrompt
	if hints != "" {
		system += "\n\nDate estimates for recurring annual events:\n" + hints
	}

	reply, err := c.complete(ctx, system, content)
	if err != nil {
		return nil, err
	}

	raw, err := decodeEvents(reply)
	if err != nil {
		return nil, err
	}

	candidates := make([]events.Candidate, 0, len(raw))
	for _, r := range raw {
		candidates = append(candidates, events.Candidate{
			Title:       r.Title,
			Description: r.Description,
			StartTime:   parseEventTime(r.StartTime),
			EndTime:     parseEventTime(r.EndTime),
			Venue:       r.Venue,
			City:        r.City,
			State:       r.State,
			URL:         r.URL,
			Category:    r.Category,
			PriceText:   r.PriceText,
		})
	}

	return candidates, nil
}

const dealSystemPrompt = `You extract local business deals from web search results.
Respond with a JSON array only, no prose and no markdown. Each element:
{"title": string, "description": string, "business_name": string,
"deal_type": one of "discount" | "coupon" | "promotion" | "freebie",
"discount_amount": string, "promo_code": string, "category": string, "terms": string,
"start_date": string (ISO 8601 date or ""), "end_date": string (ISO 8601 date or ""), "url": string}
Only include offers with a named local business. Never invent deals.`

// ExtractDeals parses a search-result digest into deal drafts.
func (c *Client) ExtractDeals(ctx context.Context, digest string) ([]Deal, error) {
	reply, err := c.complete(ctx, dealSystemPrompt, digest)
	if err != nil {
		return nil, err
	}

	var deals []Deal
	if err := json.Unmarshal([]byte(reply), &deals); err != nil {
		// Some models wrap the array in an object despite instructions
		var wrapper struct {
			Deals []Deal `json:"deals"`
		}
		if werr := json.Unmarshal([]byte(reply), &wrapper); werr != nil || wrapper.Deals == nil {
			return nil, fmt.Errorf("failed to parse deal extraction output: %w", err)
		}
		deals = wrapper.Deals
	}

	return deals, nil
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.oa.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return StripCodeFence(resp.Choices[0].Message.Content), nil
}

func decodeEvents(reply string) ([]rawEvent, error) {
	var raw []rawEvent
	if err := json.Unmarshal([]byte(reply), &raw); err != nil {
		var wrapper struct {
			Events []rawEvent `json:"events"`
		}
		if werr := json.Unmarshal([]byte(reply), &wrapper); werr != nil || wrapper.Events == nil {
			return nil, fmt.Errorf("failed to parse event extraction output: %w", err)
		}
		raw = wrapper.Events
	}
	return raw, nil
}

var eventTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseEventTime interprets the model's timestamp string. Layouts without an
// offset are read in the configured local timezone. Unparseable strings map
// to nil; the normalizer drops candidates without a start time.
func parseEventTime(s string) *time.Time {
	if s == "" {
		return nil
	}

	for _, layout := range eventTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t
		}
	}

	slog.Debug("Unparseable timestamp in extraction output", "value", s)
	return nil
}
