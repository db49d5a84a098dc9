package enrichment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
	"github.com/kirillkom/itinerary-agent/internal/core/ports"
)

type fakeCompleter struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeCompleter) CompleteJSON(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}

func TestClothingFallbackUsesForecast(t *testing.T) {
	advisor := NewClothingAdvisor(nil, quietLogger())
	advice, err := advisor.SuggestClothing(context.Background(), ports.ClothingInput{
		Destination: "Austin, TX",
		Season:      "summer",
		Days:        3,
		Forecast:    &domain.Forecast{Status: domain.StatusSuccess, Summary: "Rainy", HighF: 88, LowF: 72, RainChance: 0.75},
	})
	if err != nil {
		t.Fatalf("suggest clothing: %v", err)
	}
	if advice.Source != SourceFallback {
		t.Fatalf("expected fallback source, got %q", advice.Source)
	}
	for _, want := range []string{"Compact umbrella", "Sun hat", "Shorts"} {
		if !contains(advice.Items, want) {
			t.Fatalf("expected %q in %v", want, advice.Items)
		}
	}
	if contains(advice.Items, "Gloves") {
		t.Fatalf("did not expect cold weather items in %v", advice.Items)
	}
	if advice.Conditions != "Rainy, highs 88F, lows 72F, 75% chance of rain" {
		t.Fatalf("unexpected conditions %q", advice.Conditions)
	}
}

func TestClothingFallbackUsesClimateProfileWithoutForecast(t *testing.T) {
	advisor := NewClothingAdvisor(nil, quietLogger())
	advice, err := advisor.SuggestClothing(context.Background(), ports.ClothingInput{Destination: "Chicago, IL", Season: "winter", Days: 6})
	if err != nil {
		t.Fatalf("suggest clothing: %v", err)
	}
	if !strings.HasPrefix(advice.Conditions, "Cold Winter, highs 32F") {
		t.Fatalf("unexpected conditions %q", advice.Conditions)
	}
	for _, want := range []string{"Insulated coat", "Gloves", "Travel laundry bag"} {
		if !contains(advice.Items, want) {
			t.Fatalf("expected %q in %v", want, advice.Items)
		}
	}
	if contains(advice.Items, "Compact umbrella") {
		t.Fatalf("did not expect rain gear for 35%% rain: %v", advice.Items)
	}
}

func TestClothingPrefersLLM(t *testing.T) {
	llm := &fakeCompleter{response: `{"items": ["Linen shirt", " linen shirt ", "Boots", ""], "palette": []}`}
	advisor := NewClothingAdvisor(llm, quietLogger())

	advice, err := advisor.SuggestClothing(context.Background(), ports.ClothingInput{Destination: "Dallas, TX", Season: "fall", Days: 2})
	if err != nil {
		t.Fatalf("suggest clothing: %v", err)
	}
	if advice.Source != SourceLLM {
		t.Fatalf("expected llm source, got %q", advice.Source)
	}
	if len(advice.Items) != 2 || advice.Items[0] != "Linen shirt" || advice.Items[1] != "Boots" {
		t.Fatalf("unexpected items %v", advice.Items)
	}
	if len(advice.Palette) == 0 || advice.Palette[0] != "Olive" {
		t.Fatalf("expected seasonal palette fallback, got %v", advice.Palette)
	}
	if !strings.Contains(llm.prompts[0], "2-day fall trip to Dallas, TX") {
		t.Fatalf("unexpected prompt %q", llm.prompts[0])
	}
}

func TestClothingFallsBackWhenLLMFails(t *testing.T) {
	for name, llm := range map[string]*fakeCompleter{
		"error":    {err: errors.New("connection refused")},
		"garbage":  {response: "not json"},
		"no items": {response: `{"items": []}`},
	} {
		t.Run(name, func(t *testing.T) {
			advice, err := NewClothingAdvisor(llm, quietLogger()).SuggestClothing(context.Background(), ports.ClothingInput{Destination: "Austin", Season: "spring"})
			if err != nil {
				t.Fatalf("suggest clothing: %v", err)
			}
			if advice.Source != SourceFallback {
				t.Fatalf("expected fallback, got %q", advice.Source)
			}
		})
	}
}

func TestAdvisorsReturnContextErrorWhenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	llm := &fakeCompleter{err: context.Canceled}

	if _, err := NewMusicAdvisor(llm, quietLogger()).RecommendMusic(ctx, "Austin", "summer"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := NewHistoryWriter(llm, quietLogger()).CityHistory(ctx, "Austin"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCuratedPlaylistForAustin(t *testing.T) {
	advice, err := NewMusicAdvisor(nil, quietLogger()).RecommendMusic(context.Background(), "Austin, TX", "summer")
	if err != nil {
		t.Fatalf("recommend music: %v", err)
	}
	if len(advice.Playlist) != playlistLimit {
		t.Fatalf("expected %d songs, got %d", playlistLimit, len(advice.Playlist))
	}
	if advice.Playlist[0].Title != "Texas Sun" {
		t.Fatalf("expected city songs first, got %+v", advice.Playlist[0])
	}
	if last := advice.Playlist[len(advice.Playlist)-1]; last.Title != "Summertime" {
		t.Fatalf("expected seasonal track last, got %+v", last)
	}
}

func TestCuratedPlaylistForUnknownCity(t *testing.T) {
	advice, err := NewMusicAdvisor(nil, quietLogger()).RecommendMusic(context.Background(), "Boise, ID", "winter")
	if err != nil {
		t.Fatalf("recommend music: %v", err)
	}
	// Pop, Rock and Indie picks plus the seasonal track.
	if len(advice.Playlist) != 7 {
		t.Fatalf("expected 7 songs, got %d", len(advice.Playlist))
	}
	if advice.Playlist[0].Reason != "Pop sound of Boise" {
		t.Fatalf("unexpected reason %q", advice.Playlist[0].Reason)
	}
}

func TestMusicFromLLMDeduplicates(t *testing.T) {
	llm := &fakeCompleter{response: `{"songs": [
		{"title": "\"Texas Sun\"", "artist": "Khruangbin", "reason": "vibes"},
		{"title": "Texas Sun", "artist": "khruangbin"},
		{"title": "", "artist": "Nobody"}
	]}`}
	advice, err := NewMusicAdvisor(llm, quietLogger()).RecommendMusic(context.Background(), "Austin", "Summer")
	if err != nil {
		t.Fatalf("recommend music: %v", err)
	}
	if advice.Source != SourceLLM || len(advice.Playlist) != 1 || advice.Playlist[0].Title != "Texas Sun" {
		t.Fatalf("unexpected playlist %+v", advice)
	}
	if !strings.Contains(llm.prompts[0], "Country, Rock, Blues, Indie") {
		t.Fatalf("expected city genres in prompt: %q", llm.prompts[0])
	}
}

func TestStoredHistory(t *testing.T) {
	history, err := NewHistoryWriter(nil, quietLogger()).CityHistory(context.Background(), "Austin, TX")
	if err != nil {
		t.Fatalf("city history: %v", err)
	}
	if history.City != "Austin" || !strings.Contains(history.Summary, "1839") || len(history.Facts) != 3 {
		t.Fatalf("unexpected history %+v", history)
	}

	generic, err := NewHistoryWriter(nil, quietLogger()).CityHistory(context.Background(), "Marfa, TX")
	if err != nil {
		t.Fatalf("city history: %v", err)
	}
	if !strings.HasPrefix(generic.Summary, "Marfa is a city") || generic.Source != SourceFallback {
		t.Fatalf("unexpected generic history %+v", generic)
	}
}

func TestHistoryFromLLMTruncatesOnSentence(t *testing.T) {
	long := strings.Repeat("Founded long ago. ", 40)
	llm := &fakeCompleter{response: `{"summary": "` + long + `", "facts": ["One", "Two"]}`}

	history, err := NewHistoryWriter(llm, quietLogger()).CityHistory(context.Background(), "Austin, TX")
	if err != nil {
		t.Fatalf("city history: %v", err)
	}
	if len(history.Summary) > maxHistoryChars || !strings.HasSuffix(history.Summary, ".") {
		t.Fatalf("unexpected summary length %d: %q", len(history.Summary), history.Summary)
	}
	if history.Source != SourceLLM || len(history.Facts) != 2 {
		t.Fatalf("unexpected history %+v", history)
	}
}
