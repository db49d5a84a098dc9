package enrichment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
	"github.com/kirillkom/itinerary-agent/internal/core/ports"
)

const maxHistoryChars = 500

type cityStory struct {
	summary string
	facts   []string
}

var cityStories = map[string]cityStory{
	"austin": {
		summary: "Austin was founded in 1839 and named after Stephen F. Austin, the Father of Texas. It became the capital of the Republic of Texas that same year and later the state capital. Known for its music scene, Austin calls itself the Live Music Capital of the World and hosts South by Southwest and Austin City Limits.",
		facts: []string{
			"The Texas State Capitol is taller than the U.S. Capitol.",
			"Congress Avenue Bridge shelters the largest urban bat colony in North America.",
			"Austin City Limits is the longest-running music series on American television.",
		},
	},
	"dallas": {
		summary: "Dallas grew from a trading post John Neely Bryan set up on the Trinity River in 1841. Railroads arriving in the 1870s turned it into a cotton and cattle hub, and oil money in the 1930s made it a banking center. Today it anchors the largest metropolitan area in Texas.",
		facts: []string{
			"The frozen margarita machine was invented in Dallas in 1971.",
			"Dealey Plaza and the Sixth Floor Museum document the 1963 Kennedy assassination.",
			"The Dallas Arts District is one of the largest contiguous urban arts districts in the country.",
		},
	},
	"houston": {
		summary: "Houston was founded in 1836 by the Allen brothers and named after Sam Houston, hero of San Jacinto. The Ship Channel and the 1901 Spindletop oil strike built its energy economy, and NASA's arrival in the 1960s made it Space City.",
		facts: []string{
			"Houston was briefly the capital of the Republic of Texas.",
			"Houston was the first word spoken from the Moon.",
			"The Texas Medical Center is the largest medical complex in the world.",
		},
	},
	"san antonio": {
		summary: "San Antonio began as a Spanish mission and presidio in 1718. The 1836 Battle of the Alamo made it a symbol of Texas independence, and its five missions are now a UNESCO World Heritage Site.",
		facts: []string{
			"The River Walk winds for about fifteen miles through the city.",
			"San Antonio is the oldest municipality in Texas.",
		},
	},
	"new york": {
		summary: "New York City began as New Amsterdam, a Dutch settlement founded in 1624, and became New York when the English took control in 1664. It grew into the largest city in the United States and a global center of finance and culture.",
		facts: []string{
			"More than 800 languages are spoken in New York City.",
			"Central Park opened in 1858.",
		},
	},
	"chicago": {
		summary: "Chicago was incorporated in 1837 and became a transportation hub thanks to its place on Lake Michigan. After the Great Chicago Fire of 1871 the city rebuilt with the world's first skyscrapers.",
		facts: []string{
			"The Chicago River was reversed in 1900 to flow away from the lake.",
			"The Home Insurance Building of 1885 is considered the first skyscraper.",
		},
	},
}

// HistoryWriter produces a short city history, preferring an LLM when one is
// configured.
type HistoryWriter struct {
	llm    Completer
	logger *slog.Logger
}

func NewHistoryWriter(llm Completer, logger *slog.Logger) *HistoryWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryWriter{llm: llm, logger: logger}
}

var _ ports.HistoryWriter = (*HistoryWriter)(nil)

func (w *HistoryWriter) CityHistory(ctx context.Context, destination string) (*domain.CityHistory, error) {
	city := domain.CityName(destination)
	if w.llm != nil {
		history, err := w.historyWithLLM(ctx, city, destination)
		if err == nil {
			return history, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		w.logger.Warn("history_llm_failed", "destination", destination, "error", err)
	}
	return storedHistory(city, destination), nil
}

type historyCompletion struct {
	Summary string   `json:"summary"`
	Facts   []string `json:"facts"`
}

func (w *HistoryWriter) historyWithLLM(ctx context.Context, city, destination string) (*domain.CityHistory, error) {
	prompt := fmt.Sprintf(
		"Write a brief, travel-friendly history of %s in under %d characters, covering its founding and how it developed. "+
			`Return JSON {"summary": "...", "facts": [3 short surprising facts]}.`,
		destination, maxHistoryChars,
	)
	var completion historyCompletion
	if err := completeInto(ctx, w.llm, prompt, &completion); err != nil {
		return nil, err
	}
	summary := truncateSentences(strings.TrimSpace(completion.Summary), maxHistoryChars)
	if summary == "" {
		return nil, errors.New("completion has no summary")
	}
	return &domain.CityHistory{
		City:    city,
		Summary: summary,
		Facts:   cleanList(completion.Facts, 5),
		Source:  SourceLLM,
	}, nil
}

func storedHistory(city, destination string) *domain.CityHistory {
	lowered := strings.ToLower(destination)
	for key, story := range cityStories {
		if strings.Contains(lowered, key) {
			return &domain.CityHistory{
				City:    city,
				Summary: story.summary,
				Facts:   append([]string(nil), story.facts...),
				Source:  SourceFallback,
			}
		}
	}
	return &domain.CityHistory{
		City: city,
		Summary: fmt.Sprintf("%s is a city with a rich history and cultural heritage. It has grown from its early beginnings "+
			"into a destination known for its own character, landmarks and local traditions.", city),
		Facts:  []string{},
		Source: SourceFallback,
	}
}

// truncateSentences cuts text to limit bytes, ending on the last full sentence
// when one fits.
func truncateSentences(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := text[:limit]
	if idx := strings.LastIndex(cut, "."); idx > 0 {
		return cut[:idx+1]
	}
	return strings.TrimSpace(cut)
}
