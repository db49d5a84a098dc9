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

const playlistLimit = 12

var cityGenres = []struct {
	key    string
	genres []string
}{
	{"austin", []string{"Country", "Rock", "Blues", "Indie"}},
	{"houston", []string{"Hip-Hop", "Country", "R&B", "Latin"}},
	{"dallas", []string{"Country", "Hip-Hop", "Rock", "Pop"}},
	{"san antonio", []string{"Tejano", "Country", "Latin"}},
	{"nashville", []string{"Country", "Folk", "Bluegrass"}},
	{"new orleans", []string{"Jazz", "Blues", "Funk"}},
	{"chicago", []string{"Blues", "Jazz", "House", "Hip-Hop"}},
	{"detroit", []string{"Motown", "Techno", "Soul"}},
	{"seattle", []string{"Grunge", "Indie Rock", "Alternative"}},
	{"new york", []string{"Hip-Hop", "Jazz", "Pop", "Rock"}},
	{"los angeles", []string{"Pop", "Hip-Hop", "Rock"}},
	{"miami", []string{"Latin", "Reggaeton", "Electronic"}},
	{"texas", []string{"Country", "Rock", "Blues"}},
}

var citySongs = map[string][]domain.SongRecommendation{
	"austin": {
		{Title: "Texas Sun", Artist: "Khruangbin & Leon Bridges", Reason: "Laid-back Austin groove"},
		{Title: "Pride and Joy", Artist: "Stevie Ray Vaughan", Reason: "Austin blues legend"},
		{Title: "Austin", Artist: "Blake Shelton", Reason: "Named for the city"},
		{Title: "Deep in the Heart of Texas", Artist: "Gene Autry", Reason: "Texas classic"},
		{Title: "Mamas Don't Let Your Babies Grow Up to Be Cowboys", Artist: "Willie Nelson", Reason: "Outlaw country from Austin's own"},
	},
	"dallas": {
		{Title: "Big D", Artist: "Jack Jones", Reason: "Named for the city"},
		{Title: "Dallas", Artist: "Alan Jackson", Reason: "Country nod to Dallas"},
		{Title: "Cowboys Like Us", Artist: "George Strait", Reason: "Texas country staple"},
	},
	"houston": {
		{Title: "Houston", Artist: "Dean Martin", Reason: "Named for the city"},
		{Title: "Still Tippin'", Artist: "Mike Jones", Reason: "Houston hip-hop landmark"},
		{Title: "Crazy in Love", Artist: "Beyonce", Reason: "Houston's biggest star"},
	},
	"san antonio": {
		{Title: "San Antonio Rose", Artist: "Bob Wills and His Texas Playboys", Reason: "Western swing classic"},
		{Title: "Como la Flor", Artist: "Selena", Reason: "Tejano icon"},
	},
}

var genreSongs = map[string][]domain.SongRecommendation{
	"Country":    {{Title: "Take Me Home, Country Roads", Artist: "John Denver"}, {Title: "On the Road Again", Artist: "Willie Nelson"}},
	"Rock":       {{Title: "Born to Run", Artist: "Bruce Springsteen"}, {Title: "Life Is a Highway", Artist: "Tom Cochrane"}},
	"Blues":      {{Title: "Sweet Home Chicago", Artist: "Robert Johnson"}, {Title: "The Thrill Is Gone", Artist: "B.B. King"}},
	"Jazz":       {{Title: "Take Five", Artist: "The Dave Brubeck Quartet"}, {Title: "What a Wonderful World", Artist: "Louis Armstrong"}},
	"Hip-Hop":    {{Title: "Empire State of Mind", Artist: "Jay-Z ft. Alicia Keys"}, {Title: "Good Day", Artist: "Ice Cube"}},
	"Latin":      {{Title: "Vivir Mi Vida", Artist: "Marc Anthony"}, {Title: "Despacito", Artist: "Luis Fonsi ft. Daddy Yankee"}},
	"Pop":        {{Title: "Good as Hell", Artist: "Lizzo"}, {Title: "Shut Up and Dance", Artist: "Walk the Moon"}},
	"Indie":      {{Title: "Home", Artist: "Edward Sharpe & The Magnetic Zeros"}, {Title: "Electric Feel", Artist: "MGMT"}},
	"Folk":       {{Title: "Ho Hey", Artist: "The Lumineers"}, {Title: "Fast Car", Artist: "Tracy Chapman"}},
	"Electronic": {{Title: "Midnight City", Artist: "M83"}, {Title: "Strobe", Artist: "deadmau5"}},
}

var seasonSongs = map[string]domain.SongRecommendation{
	"spring": {Title: "Here Comes the Sun", Artist: "The Beatles", Reason: "Spring opener"},
	"summer": {Title: "Summertime", Artist: "DJ Jazzy Jeff & The Fresh Prince", Reason: "Summer road-trip staple"},
	"fall":   {Title: "Autumn Leaves", Artist: "Nat King Cole", Reason: "Fall mood"},
	"winter": {Title: "Winter Song", Artist: "Sara Bareilles & Ingrid Michaelson", Reason: "Winter mood"},
}

// MusicAdvisor builds a destination playlist from an LLM or from curated lists.
type MusicAdvisor struct {
	llm    Completer
	logger *slog.Logger
}

func NewMusicAdvisor(llm Completer, logger *slog.Logger) *MusicAdvisor {
	if logger == nil {
		logger = slog.Default()
	}
	return &MusicAdvisor{llm: llm, logger: logger}
}

var _ ports.MusicAdvisor = (*MusicAdvisor)(nil)

func (a *MusicAdvisor) RecommendMusic(ctx context.Context, destination, season string) (*domain.MusicAdvice, error) {
	season = normalizeSeason(season)
	if a.llm != nil {
		advice, err := a.recommendWithLLM(ctx, destination, season)
		if err == nil {
			return advice, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.logger.Warn("music_llm_failed", "destination", destination, "error", err)
	}
	return curatedPlaylist(destination, season), nil
}

type musicCompletion struct {
	Songs []struct {
		Title  string `json:"title"`
		Artist string `json:"artist"`
		Reason string `json:"reason"`
	} `json:"songs"`
}

func (a *MusicAdvisor) recommendWithLLM(ctx context.Context, destination, season string) (*domain.MusicAdvice, error) {
	prompt := fmt.Sprintf(
		"Recommend 8 real songs for a %s trip to %s, favoring %s. "+
			`Return JSON {"songs": [{"title": "...", "artist": "...", "reason": "one short sentence"}]}.`,
		season, destination, strings.Join(genresFor(destination), ", "),
	)
	var completion musicCompletion
	if err := completeInto(ctx, a.llm, prompt, &completion); err != nil {
		return nil, err
	}
	playlist := make([]domain.SongRecommendation, 0, len(completion.Songs))
	seen := make(map[string]struct{}, len(completion.Songs))
	for _, song := range completion.Songs {
		title := strings.Trim(strings.TrimSpace(song.Title), `"`)
		artist := strings.TrimSpace(song.Artist)
		key := strings.ToLower(title + "|" + artist)
		if title == "" || artist == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		playlist = append(playlist, domain.SongRecommendation{Title: title, Artist: artist, Reason: strings.TrimSpace(song.Reason)})
		if len(playlist) == playlistLimit {
			break
		}
	}
	if len(playlist) == 0 {
		return nil, errors.New("completion has no songs")
	}
	return &domain.MusicAdvice{Playlist: playlist, Source: SourceLLM}, nil
}

func genresFor(destination string) []string {
	lowered := strings.ToLower(destination)
	for _, candidate := range cityGenres {
		if strings.Contains(lowered, candidate.key) {
			return candidate.genres
		}
	}
	return []string{"Pop", "Rock", "Indie"}
}

// curatedPlaylist lists city songs first, then genre picks, then one seasonal track.
func curatedPlaylist(destination, season string) *domain.MusicAdvice {
	lowered := strings.ToLower(destination)
	city := domain.CityName(destination)
	var playlist []domain.SongRecommendation
	for key, songs := range citySongs {
		if strings.Contains(lowered, key) {
			playlist = append(playlist, songs...)
			break
		}
	}
	for _, genre := range genresFor(destination) {
		for _, song := range genreSongs[genre] {
			song.Reason = fmt.Sprintf("%s sound of %s", genre, city)
			playlist = append(playlist, song)
		}
	}
	playlist = append(playlist, seasonSongs[season])
	if len(playlist) > playlistLimit {
		playlist = append(playlist[:playlistLimit-1], seasonSongs[season])
	}
	return &domain.MusicAdvice{Playlist: playlist, Source: SourceFallback}
}
