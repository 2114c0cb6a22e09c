package lyrics

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGeminiLines(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    []Line
		wantErr bool
	}{
		{
			name: "plain array",
			text: `[{"text":"one","timestamp":1},{"text":"two","timestamp":4.5}]`,
			want: []Line{{Text: "one", TimestampSeconds: 1}, {Text: "two", TimestampSeconds: 4.5}},
		},
		{
			name: "markdown wrapped",
			text: "```json\n[{\"text\":\"one\",\"timestamp\":2}]\n```",
			want: []Line{{Text: "one", TimestampSeconds: 2}},
		},
		{
			name: "prose around array",
			text: `Sure! Here you go: [{"text":"one","timestamp":2}] Enjoy.`,
			want: []Line{{Text: "one", TimestampSeconds: 2}},
		},
		{
			name: "clamped and ordered",
			text: `[{"text":"a","timestamp":50},{"text":"","timestamp":60},{"text":"b","timestamp":10},{"text":"c","timestamp":999}]`,
			want: []Line{{Text: "a", TimestampSeconds: 50}, {Text: "b", TimestampSeconds: 50}, {Text: "c", TimestampSeconds: 100}},
		},
		{name: "empty array", text: `[]`, want: []Line{}},
		{name: "garbage", text: `I don't know this song`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseGeminiLines(tt.text, 100)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGeminiFetchLyrics(t *testing.T) {
	var prompt string
	g := newGemini(func(_ context.Context, p string) (string, error) {
		prompt = p
		return `[{"text":"hello","timestamp":3}]`, nil
	})

	lines, err := g.FetchLyrics(context.Background(), "Song", "Artist", 0)
	require.NoError(t, err)
	assert.Equal(t, []Line{{Text: "hello", TimestampSeconds: 3}}, lines)
	assert.True(t, strings.Contains(prompt, `"Song"`))
	assert.True(t, strings.Contains(prompt, "180 seconds"))
}

func TestGeminiErrors(t *testing.T) {
	g := newGemini(func(context.Context, string) (string, error) {
		return "", errors.New("quota")
	})
	_, err := g.FetchLyrics(context.Background(), "s", "a", 100)
	assert.ErrorContains(t, err, "quota")

	g = newGemini(func(context.Context, string) (string, error) {
		return "[]", nil
	})
	_, err = g.FetchLyrics(context.Background(), "s", "a", 100)
	assert.ErrorIs(t, err, ErrNoLyrics)

	_, err = NewGemini(context.Background(), "", "")
	assert.Error(t, err)
}
