// Package narrative writes a short, friendly description of a planned day.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/awaistahir/skyplan/internal/engine"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gpt-4o-mini"

const systemPrompt = "You are a concise travel assistant. Given a day's weather and planned stops, " +
	"write two sentences that set expectations for the day. Do not invent venues."

// Writer produces day narratives with an OpenAI chat model
type Writer struct {
	client openai.Client
	model  string
}

// NewWriter creates a narrative writer. An empty model uses DefaultModel.
func NewWriter(apiKey, model string, opts ...option.RequestOption) (*Writer, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key not configured")
	}
	if model == "" {
		model = DefaultModel
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Writer{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Narrate describes one day of an itinerary
func (w *Writer) Narrate(ctx context.Context, city string, day engine.DayPlan) (string, error) {
	resp, err := w.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: w.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(Prompt(city, day)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no completion returned")
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("empty completion returned")
	}
	return text, nil
}

// Prompt renders the user message for a day
func Prompt(city string, day engine.DayPlan) string {
	var b strings.Builder
	if city != "" {
		fmt.Fprintf(&b, "City: %s\n", city)
	}
	fmt.Fprintf(&b, "Day %d (%s): %s.\n", day.Day, day.Date, engine.Describe(day.Summary))
	for _, s := range day.Slots {
		fmt.Fprintf(&b, "- %s: %s at %s (%s)\n", s.Label, s.Activity, s.Venue.Name, s.Rationale)
	}
	return b.String()
}
