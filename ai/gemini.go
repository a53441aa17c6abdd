package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"google.golang.org/genai"

	"adwatch/config"
)

// GeminiClient implements Client against the Gemini API.
type GeminiClient struct {
	client       *genai.Client
	labelModel   string
	narrateModel string
	cfg          config.GeminiConfig
}

func NewGeminiClient(ctx context.Context, cfg config.GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{
		client:       client,
		labelModel:   cfg.LabelModel,
		narrateModel: cfg.NarrateModel,
		cfg:          cfg,
	}, nil
}

type labelResponse struct {
	Summary string   `json:"summary"`
	Labels  []string `json:"labels"`
}

// LabelAd classifies one ad. The response is parsed and validated against
// the expected schema; anything malformed is returned as an error so the
// caller's retry logic treats it like any other transient failure.
func (c *GeminiClient) LabelAd(ctx context.Context, req LabelRequest) (LabelResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	result, err := c.client.Models.GenerateContent(
		ctx,
		c.labelModel,
		genai.Text(buildLabelPrompt(req)),
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: labelSystemInstruction}}},
		},
	)
	if err != nil {
		return LabelResult{}, fmt.Errorf("label call: %w", err)
	}

	return parseLabelResponse(result.Text())
}

// Narrate generates the period-over-period narrative for one brand.
func (c *GeminiClient) Narrate(ctx context.Context, req NarrativeRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	result, err := c.client.Models.GenerateContent(
		ctx,
		c.narrateModel,
		genai.Text(buildNarrativePrompt(req)),
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("narrative call: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("narrative call: empty response")
	}
	return text, nil
}

func parseLabelResponse(raw string) (LabelResult, error) {
	raw = strings.TrimSpace(raw)

	// Models occasionally wrap JSON despite the instruction; take the
	// outermost object before giving up.
	if !strings.HasPrefix(raw, "{") {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start == -1 || end <= start {
			return LabelResult{}, fmt.Errorf("malformed label response: no JSON object")
		}
		raw = raw[start : end+1]
	}

	var resp labelResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return LabelResult{}, fmt.Errorf("malformed label response: %w", err)
	}

	resp.Summary = strings.TrimSpace(resp.Summary)
	if resp.Summary == "" || strings.EqualFold(resp.Summary, "null") || strings.EqualFold(resp.Summary, "none") {
		return LabelResult{}, fmt.Errorf("malformed label response: empty summary")
	}
	if len(resp.Labels) == 0 || strings.TrimSpace(resp.Labels[0]) == "" {
		return LabelResult{}, fmt.Errorf("malformed label response: no top-level label")
	}

	out := LabelResult{Summary: truncateSummary(resp.Summary)}
	for i, l := range resp.Labels {
		if i >= 3 {
			break
		}
		out.Clusters[i] = strings.TrimSpace(l)
	}
	return out, nil
}

func truncateSummary(s string) string {
	const maxLen = 160
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimRight(s[:cut], " ,.;:") + "."
}
