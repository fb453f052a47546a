package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/cinegate/cinegate/internal/model"
	"github.com/cinegate/cinegate/internal/repository"
	"github.com/cinegate/cinegate/internal/session"
	"github.com/cinegate/cinegate/internal/tmdb"
)

// Provider is the external metadata source. *tmdb.Client implements it.
type Provider interface {
	Movie(ctx context.Context, id int) (*model.Movie, error)
	Series(ctx context.Context, id int) (*model.TVSeries, error)
	Search(ctx context.Context, keyword string) (*tmdb.ResultPage, error)
	Trending(ctx context.Context) (*tmdb.ResultPage, error)
	Credits(ctx context.Context, kind model.MediaKind, id int) ([]model.CastMember, error)
}

// MediaService fetches provider records and normalizes them into MediaItems.
type MediaService struct {
	provider Provider
	repo     *repository.UserRepository
}

// NewMediaService creates a new MediaService. repo is consulted for
// favorite annotation of search and trending results.
func NewMediaService(provider Provider, repo *repository.UserRepository) *MediaService {
	return &MediaService{provider: provider, repo: repo}
}

// Item fetches a single movie or series. The result carries no favorite status.
func (s *MediaService) Item(ctx context.Context, kind model.MediaKind, id int) (model.MediaItem, error) {
	switch kind {
	case model.KindMovie:
		m, err := s.provider.Movie(ctx, id)
		if err != nil {
			return model.MediaItem{}, err
		}
		return model.NewMovieItem(m), nil
	case model.KindSeries:
		tv, err := s.provider.Series(ctx, id)
		if err != nil {
			return model.MediaItem{}, err
		}
		return model.NewSeriesItem(tv), nil
	default:
		return model.MediaItem{}, model.ErrInvalidMediaKind
	}
}

// Search returns the provider's first result page for keyword, annotated
// with favorite status when the request is authenticated. A blank keyword
// yields no results without calling the provider.
func (s *MediaService) Search(ctx context.Context, rc session.RequestContext, keyword string) ([]model.MediaItem, error) {
	if strings.TrimSpace(keyword) == "" {
		return []model.MediaItem{}, nil
	}

	page, err := s.provider.Search(ctx, keyword)
	if err != nil {
		return nil, err
	}
	return s.normalizePage(ctx, rc, page)
}

// Trending returns today's trending items, annotated like Search.
func (s *MediaService) Trending(ctx context.Context, rc session.RequestContext) ([]model.MediaItem, error) {
	page, err := s.provider.Trending(ctx)
	if err != nil {
		return nil, err
	}
	return s.normalizePage(ctx, rc, page)
}

// Credits returns the cast of a movie or series.
func (s *MediaService) Credits(ctx context.Context, kind model.MediaKind, id int) ([]model.CastMember, error) {
	return s.provider.Credits(ctx, kind, id)
}

func (s *MediaService) normalizePage(ctx context.Context, rc session.RequestContext, page *tmdb.ResultPage) ([]model.MediaItem, error) {
	items, err := normalize(page.Results)
	if err != nil {
		return nil, err
	}

	user := rc.User()
	if user == nil {
		return items, nil
	}

	favs, err := s.repo.Favorites(ctx, user.Username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return items, nil
		}
		return nil, err
	}
	return annotate(items, favs), nil
}

// resultHeader is the part of a listing entry needed to discriminate it.
type resultHeader struct {
	ID        int    `json:"id"`
	MediaType string `json:"media_type"`
}

// normalize discriminates each raw result by its media_type tag.
func normalize(results []json.RawMessage) ([]model.MediaItem, error) {
	items := make([]model.MediaItem, 0, len(results))
	for _, raw := range results {
		item, err := normalizeResult(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: decoding result: %w", tmdb.ErrUpstream, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func normalizeResult(raw json.RawMessage) (model.MediaItem, error) {
	var h resultHeader
	if err := json.Unmarshal(raw, &h); err != nil {
		return model.MediaItem{}, err
	}

	switch kind := model.KindFromProviderTag(h.MediaType); kind {
	case model.KindMovie:
		var m model.Movie
		if err := json.Unmarshal(raw, &m); err != nil {
			return model.MediaItem{}, err
		}
		return model.NewMovieItem(&m), nil
	case model.KindSeries:
		var tv model.TVSeries
		if err := json.Unmarshal(raw, &tv); err != nil {
			return model.MediaItem{}, err
		}
		return model.NewSeriesItem(&tv), nil
	case model.KindUnknown:
		return model.NewUnknownItem(&model.UnknownMedia{ID: h.ID, MediaType: h.MediaType, Raw: raw}), nil
	default:
		return model.MediaItem{}, fmt.Errorf("unhandled media kind %q", kind)
	}
}

// annotate sets IsFavorite on every item by id membership in favs.
func annotate(items []model.MediaItem, favs []model.FavoriteRef) []model.MediaItem {
	ids := make(map[int]struct{}, len(favs))
	for _, f := range favs {
		ids[f.ID] = struct{}{}
	}

	out := make([]model.MediaItem, len(items))
	for i, item := range items {
		_, fav := ids[item.ItemID()]
		out[i] = item.WithFavorite(fav)
	}
	return out
}
