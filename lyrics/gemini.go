package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

type generateFunc func(ctx context.Context, prompt string) (string, error)

// Gemini asks a generative model for timestamped lyrics.
type Gemini struct {
	generate generateFunc
	timeout  time.Duration
	logger   *log.Entry
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("lyrics: gemini api key is empty")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("lyrics: create gemini client: %w", err)
	}

	return newGemini(func(ctx context.Context, prompt string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}), nil
}

func newGemini(generate generateFunc) *Gemini {
	return &Gemini{
		generate: generate,
		timeout:  20 * time.Second,
		logger:   log.WithFields(log.Fields{"module": "lyrics", "provider": "gemini"}),
	}
}

func (g *Gemini) FetchLyrics(ctx context.Context, title, artist string, durationSeconds float64) ([]Line, error) {
	if durationSeconds <= 0 {
		durationSeconds = DefaultDurationSeconds
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := fmt.Sprintf(`Provide the lyrics of the song %q by %q, which lasts %d seconds.
Return ONLY a valid JSON array like:
[{"text":"First line","timestamp":12.5}]

Requirements:
- One entry per sung line, in order
- timestamp is the number of seconds from the start when the line is sung
- Timestamps must be between 0 and %d
- If you do not know the song, return []`, title, artist, int(durationSeconds), int(durationSeconds))

	text, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	lines, err := parseGeminiLines(text, durationSeconds)
	if err != nil {
		g.logger.WithFields(log.Fields{"function": "FetchLyrics"}).Debugf("unparseable response: %.200s", text)
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrNoLyrics
	}
	return lines, nil
}

// parseGeminiLines extracts the JSON array from a model response, which may
// be wrapped in a markdown code block.
func parseGeminiLines(text string, durationSeconds float64) ([]Line, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	if idx := strings.Index(text, "["); idx >= 0 {
		if end := strings.LastIndex(text, "]"); end > idx {
			text = text[idx : end+1]
		}
	}

	var raw []Line
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("gemini: could not parse lyrics: %w", err)
	}

	lines := make([]Line, 0, len(raw))
	last := 0.0
	for _, l := range raw {
		l.Text = strings.TrimSpace(l.Text)
		if l.Text == "" {
			continue
		}
		l.TimestampSeconds = max(last, min(l.TimestampSeconds, durationSeconds))
		last = l.TimestampSeconds
		lines = append(lines, l)
	}
	return lines, nil
}
