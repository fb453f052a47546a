package model

import (
	"errors"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

var ErrInvalidMediaKind = errors.New("type must be movie or tv")

// MediaKind classifies provider items. The values double as the provider's
// path segment and media_type tag.
type MediaKind string

const (
	KindMovie   MediaKind = "movie"
	KindSeries  MediaKind = "tv"
	KindUnknown MediaKind = "unknown"
)

// ParseMediaKind maps a client supplied type to a known kind.
func ParseMediaKind(s string) (MediaKind, error) {
	switch strings.ToLower(s) {
	case "movie":
		return KindMovie, nil
	case "tv", "series":
		return KindSeries, nil
	default:
		return "", ErrInvalidMediaKind
	}
}

// KindFromProviderTag classifies a provider media_type tag. Unrecognized
// tags (people, empty values) become KindUnknown.
func KindFromProviderTag(tag string) MediaKind {
	switch tag {
	case "movie":
		return KindMovie
	case "tv":
		return KindSeries
	default:
		return KindUnknown
	}
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type ProductionCompany struct {
	ID            int    `json:"id"`
	LogoPath      string `json:"logo_path"`
	Name          string `json:"name"`
	OriginCountry string `json:"origin_country"`
}

type ProductionCountry struct {
	ISO3166_1 string `json:"iso_3166_1"`
	Name      string `json:"name"`
}

type SpokenLanguage struct {
	EnglishName string `json:"english_name"`
	ISO639_1    string `json:"iso_639_1"`
	Name        string `json:"name"`
}

type Creator struct {
	ID          int    `json:"id"`
	CreditID    string `json:"credit_id"`
	Name        string `json:"name"`
	Gender      int    `json:"gender"`
	ProfilePath string `json:"profile_path"`
}

type Episode struct {
	ID             int     `json:"id"`
	Name           string  `json:"name"`
	Overview       string  `json:"overview"`
	VoteAverage    float64 `json:"vote_average"`
	VoteCount      int     `json:"vote_count"`
	AirDate        string  `json:"air_date"`
	EpisodeNumber  int     `json:"episode_number"`
	ProductionCode string  `json:"production_code"`
	Runtime        int     `json:"runtime"`
	SeasonNumber   int     `json:"season_number"`
	ShowID         int     `json:"show_id"`
	StillPath      string  `json:"still_path"`
}

type Network struct {
	ID            int    `json:"id"`
	LogoPath      string `json:"logo_path"`
	Name          string `json:"name"`
	OriginCountry string `json:"origin_country"`
}

type Season struct {
	AirDate      string  `json:"air_date"`
	EpisodeCount int     `json:"episode_count"`
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	PosterPath   string  `json:"poster_path"`
	SeasonNumber int     `json:"season_number"`
	VoteAverage  float64 `json:"vote_average"`
}

// Movie is a provider movie record. Detail-only fields stay zero for
// search and trending results.
type Movie struct {
	ID                  int                 `json:"id"`
	Adult               bool                `json:"adult"`
	BackdropPath        string              `json:"backdrop_path"`
	BelongsToCollection json.RawMessage     `json:"belongs_to_collection,omitempty"`
	Budget              int64               `json:"budget"`
	GenreIDs            []int               `json:"genre_ids,omitempty"`
	Genres              []Genre             `json:"genres"`
	Homepage            string              `json:"homepage"`
	IMDbID              string              `json:"imdb_id"`
	OriginalLanguage    string              `json:"original_language"`
	OriginalTitle       string              `json:"original_title"`
	Overview            string              `json:"overview"`
	Popularity          float64             `json:"popularity"`
	PosterPath          string              `json:"poster_path"`
	ProductionCompanies []ProductionCompany `json:"production_companies"`
	ProductionCountries []ProductionCountry `json:"production_countries"`
	ReleaseDate         string              `json:"release_date"`
	Revenue             int64               `json:"revenue"`
	Runtime             int                 `json:"runtime"`
	SpokenLanguages     []SpokenLanguage    `json:"spoken_languages"`
	Status              string              `json:"status"`
	Tagline             string              `json:"tagline"`
	Title               string              `json:"title"`
	Video               bool                `json:"video"`
	VoteAverage         float64             `json:"vote_average"`
	VoteCount           int                 `json:"vote_count"`
	MediaType           string              `json:"media_type"`
}

// TVSeries is a provider TV series record.
type TVSeries struct {
	ID                  int                 `json:"id"`
	Adult               bool                `json:"adult"`
	BackdropPath        string              `json:"backdrop_path"`
	CreatedBy           []Creator           `json:"created_by"`
	EpisodeRunTime      []int               `json:"episode_run_time"`
	FirstAirDate        string              `json:"first_air_date"`
	GenreIDs            []int               `json:"genre_ids,omitempty"`
	Genres              []Genre             `json:"genres"`
	Homepage            string              `json:"homepage"`
	InProduction        bool                `json:"in_production"`
	Languages           []string            `json:"languages"`
	LastAirDate         string              `json:"last_air_date"`
	LastEpisodeToAir    *Episode            `json:"last_episode_to_air"`
	NextEpisodeToAir    json.RawMessage     `json:"next_episode_to_air,omitempty"`
	Networks            []Network           `json:"networks"`
	NumberOfEpisodes    int                 `json:"number_of_episodes"`
	NumberOfSeasons     int                 `json:"number_of_seasons"`
	OriginCountry       []string            `json:"origin_country"`
	OriginalLanguage    string              `json:"original_language"`
	Name                string              `json:"name"`
	OriginalName        string              `json:"original_name"`
	Overview            string              `json:"overview"`
	Popularity          float64             `json:"popularity"`
	PosterPath          string              `json:"poster_path"`
	ProductionCompanies []ProductionCompany `json:"production_companies"`
	ProductionCountries []ProductionCountry `json:"production_countries"`
	Seasons             []Season            `json:"seasons"`
	SpokenLanguages     []SpokenLanguage    `json:"spoken_languages"`
	Status              string              `json:"status"`
	Tagline             string              `json:"tagline"`
	Type                string              `json:"type"`
	VoteAverage         float64             `json:"vote_average"`
	VoteCount           int                 `json:"vote_count"`
	MediaType           string              `json:"media_type"`
}

// UnknownMedia holds a provider result whose media_type is neither movie nor tv.
type UnknownMedia struct {
	ID        int             `json:"id"`
	MediaType string          `json:"media_type"`
	Raw       json.RawMessage `json:"-"`
}

// CastMember is a single entry of a credits response.
type CastMember struct {
	Adult              bool    `json:"adult"`
	Gender             int     `json:"gender"`
	ID                 int     `json:"id"`
	KnownForDepartment string  `json:"known_for_department"`
	Name               string  `json:"name"`
	OriginalName       string  `json:"original_name"`
	Popularity         float64 `json:"popularity"`
	ProfilePath        string  `json:"profile_path"`
	Character          string  `json:"character"`
	CreditID           string  `json:"credit_id"`
	Order              int     `json:"order"`
}

// MediaItem is the normalized result type. Exactly one of Movie, Series or
// Unknown is set, selected by Kind. IsFavorite is nil when favorite status
// is not known (anonymous request or single item lookups).
type MediaItem struct {
	Kind       MediaKind
	Movie      *Movie
	Series     *TVSeries
	Unknown    *UnknownMedia
	IsFavorite *bool
}

func NewMovieItem(m *Movie) MediaItem {
	return MediaItem{Kind: KindMovie, Movie: m}
}

func NewSeriesItem(s *TVSeries) MediaItem {
	return MediaItem{Kind: KindSeries, Series: s}
}

func NewUnknownItem(u *UnknownMedia) MediaItem {
	return MediaItem{Kind: KindUnknown, Unknown: u}
}

// ItemID returns the provider identifier of the wrapped record.
func (m MediaItem) ItemID() int {
	switch m.Kind {
	case KindMovie:
		return m.Movie.ID
	case KindSeries:
		return m.Series.ID
	case KindUnknown:
		return m.Unknown.ID
	default:
		return 0
	}
}

// Typename is the client-facing variant name.
func (m MediaItem) Typename() string {
	switch m.Kind {
	case KindMovie:
		return "Movie"
	case KindSeries:
		return "TVSeries"
	default:
		return "Unknown"
	}
}

// WithFavorite returns a copy of m carrying the given favorite status.
func (m MediaItem) WithFavorite(fav bool) MediaItem {
	m.IsFavorite = &fav
	return m
}

// MarshalJSON flattens the variant payload and adds __typename and, when
// known, isFav.
func (m MediaItem) MarshalJSON() ([]byte, error) {
	switch m.Kind {
	case KindMovie:
		return json.Marshal(struct {
			*Movie
			Typename   string `json:"__typename"`
			IsFavorite *bool  `json:"isFav,omitempty"`
		}{m.Movie, m.Typename(), m.IsFavorite})
	case KindSeries:
		return json.Marshal(struct {
			*TVSeries
			Typename   string `json:"__typename"`
			IsFavorite *bool  `json:"isFav,omitempty"`
		}{m.Series, m.Typename(), m.IsFavorite})
	case KindUnknown:
		return m.marshalUnknown()
	default:
		return nil, ErrInvalidMediaKind
	}
}

// marshalUnknown passes every provider field of the raw object through.
func (m MediaItem) marshalUnknown() ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if len(m.Unknown.Raw) > 0 {
		if err := json.Unmarshal(m.Unknown.Raw, &fields); err != nil {
			return nil, err
		}
	}

	var err error
	if fields["id"], err = json.Marshal(m.Unknown.ID); err != nil {
		return nil, err
	}
	if fields["media_type"], err = json.Marshal(m.Unknown.MediaType); err != nil {
		return nil, err
	}
	fields["__typename"] = json.RawMessage(`"` + m.Typename() + `"`)
	if m.IsFavorite != nil {
		fields["isFav"] = json.RawMessage(strconv.FormatBool(*m.IsFavorite))
	} else {
		delete(fields, "isFav")
	}
	return json.Marshal(fields)
}
