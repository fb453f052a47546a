package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cinegate/cinegate/internal/model"
)

func TestCreate(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	user := &model.User{Username: "alice", PasswordHash: "hash"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if user.ID == "" {
		t.Error("Create() did not assign an ID")
	}

	got, err := repo.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetByUsername() unexpected error: %v", err)
	}
	if got.PasswordHash != "hash" {
		t.Errorf("PasswordHash = %q, want %q", got.PasswordHash, "hash")
	}
	if len(got.Favorites) != 0 {
		t.Errorf("expected empty favorites, got %v", got.Favorites)
	}
}

func TestCreate_DuplicateKeepsExisting(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, &model.User{Username: "alice", PasswordHash: "first"}); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if err := repo.AddFavorite(ctx, "alice", model.FavoriteRef{ID: 1, Kind: model.KindMovie}); err != nil {
		t.Fatalf("AddFavorite() unexpected error: %v", err)
	}

	err := repo.Create(ctx, &model.User{Username: "alice", PasswordHash: "second"})
	if !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("expected ErrDuplicateUser, got %v", err)
	}

	got, err := repo.GetByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetByUsername() unexpected error: %v", err)
	}
	if got.PasswordHash != "first" {
		t.Errorf("PasswordHash = %q, want %q", got.PasswordHash, "first")
	}
	if len(got.Favorites) != 1 {
		t.Errorf("expected 1 favorite, got %d", len(got.Favorites))
	}
}

func TestCreate_CaseSensitive(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, &model.User{Username: "alice"}); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if err := repo.Create(ctx, &model.User{Username: "Alice"}); err != nil {
		t.Fatalf("Create() with different case unexpected error: %v", err)
	}
}

func TestGetByUsername_NotFound(t *testing.T) {
	repo := NewUserRepository()

	if _, err := repo.GetByUsername(context.Background(), "nobody"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGetByUsername_ReturnsSnapshot(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, &model.User{Username: "alice"}); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	got, _ := repo.GetByUsername(ctx, "alice")
	got.Favorites = append(got.Favorites, model.FavoriteRef{ID: 9})

	favs, err := repo.Favorites(ctx, "alice")
	if err != nil {
		t.Fatalf("Favorites() unexpected error: %v", err)
	}
	if len(favs) != 0 {
		t.Errorf("mutating a snapshot changed the store: %v", favs)
	}
}

func TestRemoveFavorite(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, &model.User{Username: "alice"}); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	refs := []model.FavoriteRef{
		{ID: 1, Kind: model.KindMovie},
		{ID: 2, Kind: model.KindSeries},
		{ID: 1, Kind: model.KindSeries},
	}
	for _, ref := range refs {
		if err := repo.AddFavorite(ctx, "alice", ref); err != nil {
			t.Fatalf("AddFavorite() unexpected error: %v", err)
		}
	}

	removed, err := repo.RemoveFavorite(ctx, "alice", 1)
	if err != nil {
		t.Fatalf("RemoveFavorite() unexpected error: %v", err)
	}
	if !removed {
		t.Fatal("RemoveFavorite() = false, want true")
	}

	favs, _ := repo.Favorites(ctx, "alice")
	want := []model.FavoriteRef{{ID: 2, Kind: model.KindSeries}, {ID: 1, Kind: model.KindSeries}}
	if len(favs) != len(want) {
		t.Fatalf("favorites = %v, want %v", favs, want)
	}
	for i := range want {
		if favs[i] != want[i] {
			t.Errorf("favorites[%d] = %v, want %v", i, favs[i], want[i])
		}
	}

	removed, err = repo.RemoveFavorite(ctx, "alice", 42)
	if err != nil {
		t.Fatalf("RemoveFavorite() unexpected error: %v", err)
	}
	if removed {
		t.Error("RemoveFavorite() of missing id = true, want false")
	}
	if favs, _ := repo.Favorites(ctx, "alice"); len(favs) != 2 {
		t.Errorf("expected list unchanged, got %v", favs)
	}
}

func TestAddFavorite_Concurrent(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, &model.User{Username: "alice"}); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}

	const n = 200
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := repo.AddFavorite(ctx, "alice", model.FavoriteRef{ID: id, Kind: model.KindMovie}); err != nil {
				t.Errorf("AddFavorite(%d) unexpected error: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	favs, err := repo.Favorites(ctx, "alice")
	if err != nil {
		t.Fatalf("Favorites() unexpected error: %v", err)
	}
	if len(favs) != n {
		t.Fatalf("expected %d favorites, got %d", n, len(favs))
	}
	seen := make(map[int]bool, n)
	for _, f := range favs {
		seen[f.ID] = true
	}
	for i := 1; i <= n; i++ {
		if !seen[i] {
			t.Errorf("favorite %d lost", i)
		}
	}
}

func TestFavorites_UnknownUser(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	if _, err := repo.Favorites(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Favorites() error = %v, want ErrUserNotFound", err)
	}
	if err := repo.AddFavorite(ctx, "ghost", model.FavoriteRef{ID: 1}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("AddFavorite() error = %v, want ErrUserNotFound", err)
	}
	if _, err := repo.RemoveFavorite(ctx, "ghost", 1); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("RemoveFavorite() error = %v, want ErrUserNotFound", err)
	}
}
