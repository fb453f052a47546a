package service

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/cinegate/cinegate/internal/model"
	"github.com/cinegate/cinegate/internal/repository"
	"github.com/cinegate/cinegate/internal/session"
)

// maxConcurrentFetches bounds the provider calls of one Resolve.
const maxConcurrentFetches = 8

var ErrAuthenticationRequired = errors.New("not authenticated")

// ItemFetcher fetches a single provider item. *MediaService implements it.
type ItemFetcher interface {
	Item(ctx context.Context, kind model.MediaKind, id int) (model.MediaItem, error)
}

// FavoritesService manages the favorites list of the authenticated user.
type FavoritesService struct {
	repo    *repository.UserRepository
	fetcher ItemFetcher
}

// NewFavoritesService creates a new FavoritesService.
func NewFavoritesService(repo *repository.UserRepository, fetcher ItemFetcher) *FavoritesService {
	return &FavoritesService{repo: repo, fetcher: fetcher}
}

// List returns the stored favorites in insertion order.
func (s *FavoritesService) List(ctx context.Context, rc session.RequestContext) ([]model.FavoriteRef, error) {
	username, err := requireUser(rc)
	if err != nil {
		return nil, err
	}

	favs, err := s.repo.Favorites(ctx, username)
	return favs, mapStoreError(err)
}

// Add appends a favorite without deduplication and returns the stored ref.
func (s *FavoritesService) Add(ctx context.Context, rc session.RequestContext, req model.FavoriteRequest) (model.FavoriteRef, error) {
	username, err := requireUser(rc)
	if err != nil {
		return model.FavoriteRef{}, err
	}

	kind, err := model.ParseMediaKind(req.Type)
	if err != nil {
		return model.FavoriteRef{}, err
	}

	ref := model.FavoriteRef{ID: req.ID, Kind: kind}
	if err := s.repo.AddFavorite(ctx, username, ref); err != nil {
		return model.FavoriteRef{}, mapStoreError(err)
	}

	slog.Debug("favorite added", "username", username, "id", ref.ID, "type", ref.Kind)
	return ref, nil
}

// Remove deletes the first favorite matching id and reports whether one existed.
func (s *FavoritesService) Remove(ctx context.Context, rc session.RequestContext, id int) (bool, error) {
	username, err := requireUser(rc)
	if err != nil {
		return false, err
	}

	removed, err := s.repo.RemoveFavorite(ctx, username, id)
	return removed, mapStoreError(err)
}

// Resolve fetches every favorite from the provider concurrently and returns
// them in favorites order, each marked as a favorite. The first failed
// fetch fails the whole call. Fetches already in flight are left to finish
// rather than canceled; queued ones are skipped.
func (s *FavoritesService) Resolve(ctx context.Context, rc session.RequestContext) ([]model.MediaItem, error) {
	favs, err := s.List(ctx, rc)
	if err != nil {
		return nil, err
	}

	items := make([]model.MediaItem, len(favs))
	var failed atomic.Bool
	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)

	for i, fav := range favs {
		g.Go(func() error {
			if failed.Load() {
				return nil
			}
			item, err := s.fetcher.Item(ctx, fav.Kind, fav.ID)
			if err != nil {
				failed.Store(true)
				return err
			}
			items[i] = item.WithFavorite(true)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func requireUser(rc session.RequestContext) (string, error) {
	user := rc.User()
	if user == nil {
		return "", ErrAuthenticationRequired
	}
	return user.Username, nil
}

// mapStoreError treats a session whose user vanished from the store as
// unauthenticated.
func mapStoreError(err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return ErrAuthenticationRequired
	}
	return err
}
