package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/natethegreat418/movemaps/internal/domain/model"
	"github.com/natethegreat418/movemaps/internal/repository/memory"
)

func newLocationEnv() (*memory.Store, *LocationService) {
	store := memory.NewStore()
	svc := NewLocationService(store.Locations(), 16, time.Minute, time.Second, testLogger())
	return store, svc
}

func seedLocation(store *memory.Store, title string) model.Location {
	loc := model.Location{
		ID:        uuid.NewString(),
		Title:     title,
		MediaType: model.MediaTypeMovie,
		Lat:       51.5,
		Lng:       -0.12,
		CreatedAt: time.Now(),
	}
	store.SeedLocation(loc)
	return loc
}

func TestLocationListCaches(t *testing.T) {
	store, svc := newLocationEnv()
	ctx := context.Background()
	seedLocation(store, "Skyfall")

	first, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("List() вернул %d записей, хотели 1", len(first))
	}

	// Запись добавлена в обход сервиса — кэш отдаёт прежний снимок
	seedLocation(store, "Spectre")
	second, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(second) != 1 {
		t.Errorf("кэшированный List() вернул %d записей, хотели 1", len(second))
	}

	// После сброса кэша видно обе
	svc.InvalidateCache()
	third, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() ошибка: %v", err)
	}
	if len(third) != 2 {
		t.Errorf("после сброса List() вернул %d записей, хотели 2", len(third))
	}
}

func TestLocationGet(t *testing.T) {
	store, svc := newLocationEnv()
	ctx := context.Background()
	loc := seedLocation(store, "Vertigo")

	got, err := svc.Get(ctx, loc.ID)
	if err != nil {
		t.Fatalf("Get() ошибка: %v", err)
	}
	if got.Title != "Vertigo" {
		t.Errorf("Title = %q, хотели %q", got.Title, "Vertigo")
	}

	_, err = svc.Get(ctx, uuid.NewString())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ожидали ErrNotFound, получили: %v", err)
	}
}

func TestLocationImport(t *testing.T) {
	store, svc := newLocationEnv()
	ctx := context.Background()

	existing := seedLocation(store, "Rocky")
	batch := []*model.Location{
		{Title: "Rocky", MediaType: model.MediaTypeMovie, Lat: 39.96, Lng: -75.17, ID: existing.ID},
		{Title: "Creed", MediaType: model.MediaTypeMovie, Lat: 39.95, Lng: -75.16},
		{Title: "The Wire", MediaType: model.MediaTypeTV, Lat: 39.29, Lng: -76.61},
	}

	created, err := svc.Import(ctx, batch)
	if err != nil {
		t.Fatalf("Import() ошибка: %v", err)
	}
	// Дубликат ID пропущен
	if created != 2 {
		t.Errorf("Import() создал %d записей, хотели 2", created)
	}

	locs, _ := svc.List(ctx)
	if len(locs) != 3 {
		t.Errorf("каталог содержит %d локаций, хотели 3", len(locs))
	}
}

func TestLocationImportValidation(t *testing.T) {
	_, svc := newLocationEnv()

	created, err := svc.Import(context.Background(), []*model.Location{
		{Title: "", MediaType: model.MediaTypeMovie, Lat: 0, Lng: 0},
	})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("ожидали ErrValidation, получили: %v", err)
	}
	if created != 0 {
		t.Errorf("создано %d записей, хотели 0", created)
	}
}
