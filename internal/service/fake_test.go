package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/cinegate/cinegate/internal/crypto"
	"github.com/cinegate/cinegate/internal/model"
	"github.com/cinegate/cinegate/internal/repository"
	"github.com/cinegate/cinegate/internal/session"
	"github.com/cinegate/cinegate/internal/tmdb"
)

// fakeProvider serves canned records and counts calls.
type fakeProvider struct {
	mu       sync.Mutex
	movies   map[int]*model.Movie
	series   map[int]*model.TVSeries
	results  []json.RawMessage
	cast     []model.CastMember
	failIDs  map[int]bool
	searched []string
	delay    time.Duration
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		movies: map[int]*model.Movie{
			414906: {ID: 414906, Title: "The Batman", MediaType: "movie"},
			268:    {ID: 268, Title: "Batman", MediaType: "movie"},
		},
		series: map[int]*model.TVSeries{
			2098: {ID: 2098, Name: "Batman: The Animated Series", MediaType: "tv"},
		},
		results: []json.RawMessage{
			json.RawMessage(`{"id":414906,"title":"The Batman","media_type":"movie"}`),
			json.RawMessage(`{"id":268,"title":"Batman","media_type":"movie"}`),
			json.RawMessage(`{"id":2098,"name":"Batman: The Animated Series","media_type":"tv"}`),
			json.RawMessage(`{"id":3894,"name":"Christian Bale","media_type":"person"}`),
		},
		failIDs: map[int]bool{},
	}
}

func (p *fakeProvider) Movie(ctx context.Context, id int) (*model.Movie, error) {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.failIDs[id] {
		return nil, &tmdb.StatusError{StatusCode: 500}
	}
	m, ok := p.movies[id]
	if !ok {
		return nil, &tmdb.StatusError{StatusCode: 404}
	}
	return m, nil
}

func (p *fakeProvider) Series(ctx context.Context, id int) (*model.TVSeries, error) {
	if p.failIDs[id] {
		return nil, &tmdb.StatusError{StatusCode: 500}
	}
	s, ok := p.series[id]
	if !ok {
		return nil, &tmdb.StatusError{StatusCode: 404}
	}
	return s, nil
}

func (p *fakeProvider) Search(ctx context.Context, keyword string) (*tmdb.ResultPage, error) {
	p.mu.Lock()
	p.searched = append(p.searched, keyword)
	p.mu.Unlock()
	return &tmdb.ResultPage{Page: 1, Results: p.results, TotalResults: len(p.results)}, nil
}

func (p *fakeProvider) Trending(ctx context.Context) (*tmdb.ResultPage, error) {
	return &tmdb.ResultPage{Page: 1, Results: p.results}, nil
}

func (p *fakeProvider) Credits(ctx context.Context, kind model.MediaKind, id int) ([]model.CastMember, error) {
	if kind != model.KindMovie && kind != model.KindSeries {
		return nil, model.ErrInvalidMediaKind
	}
	return p.cast, nil
}

// fakeCookies records the cookie operations of one request.
type fakeCookies struct {
	token   string
	set     int
	cleared int
}

func (c *fakeCookies) SetToken(token string) {
	c.token = token
	c.set++
}

func (c *fakeCookies) Clear() {
	c.token = ""
	c.cleared++
}

type testEnv struct {
	repo      *repository.UserRepository
	tokens    *crypto.TokenService
	provider  *fakeProvider
	auth      *AuthService
	media     *MediaService
	favorites *FavoritesService
}

func newTestEnv() *testEnv {
	repo := repository.NewUserRepository()
	tokens := crypto.NewTokenService("test-secret", time.Hour)
	provider := newFakeProvider()
	media := NewMediaService(provider, repo)

	return &testEnv{
		repo:      repo,
		tokens:    tokens,
		provider:  provider,
		auth:      NewAuthService(repo, tokens, 4, nil),
		media:     media,
		favorites: NewFavoritesService(repo, media),
	}
}

func anonymous() session.RequestContext {
	return session.RequestContext{Session: session.Session{State: session.Anonymous}, Cookies: &fakeCookies{}}
}

// signIn registers username and returns a verified request context for it.
func (e *testEnv) signIn(t *testing.T, username string) session.RequestContext {
	t.Helper()
	ctx := context.Background()

	if _, err := e.auth.Register(ctx, anonymous(), model.CredentialsRequest{Username: username, Password: "pw-" + username}); err != nil {
		t.Fatalf("Register(%s) unexpected error: %v", username, err)
	}
	user, err := e.repo.GetByUsername(ctx, username)
	if err != nil {
		t.Fatalf("GetByUsername(%s) unexpected error: %v", username, err)
	}
	return session.RequestContext{
		Session: session.Session{State: session.Verified, User: user},
		Cookies: &fakeCookies{},
	}
}

func mustAdd(t *testing.T, e *testEnv, rc session.RequestContext, id int, kind string) {
	t.Helper()
	if _, err := e.favorites.Add(context.Background(), rc, model.FavoriteRequest{ID: id, Type: kind}); err != nil {
		t.Fatalf("Add(%d, %s) unexpected error: %v", id, kind, err)
	}
}

func itemIDs(items []model.MediaItem) string {
	return fmt.Sprint(func() []int {
		ids := make([]int, len(items))
		for i, it := range items {
			ids[i] = it.ItemID()
		}
		return ids
	}())
}
