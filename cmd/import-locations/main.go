// import-locations — массовый импорт одобренных локаций из JSON-файла
// напрямую в каталог, минуя модерацию. Используется для начального
// наполнения базы и переноса данных между окружениями.
//
// Формат файла — массив локаций в wire-формате API:
//
//	[{"title": "...", "type": "movie", "year": 2008, "lat": 51.2, "lng": 3.2,
//	  "location_name": "...", "trailer_url": "...", "imdb_link": "..."}]
//
// Подключение к PostgreSQL — через те же переменные окружения MM_*.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/natethegreat418/movemaps/internal/config"
	"github.com/natethegreat418/movemaps/internal/database"
	"github.com/natethegreat418/movemaps/internal/domain/model"
	"github.com/natethegreat418/movemaps/internal/repository"
	"github.com/natethegreat418/movemaps/internal/service"
)

// importLocation — запись входного JSON-файла.
type importLocation struct {
	ID           string  `json:"id,omitempty"`
	Title        string  `json:"title"`
	Type         string  `json:"type"`
	Year         *int    `json:"year,omitempty"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	LocationName *string `json:"location_name,omitempty"`
	TrailerURL   *string `json:"trailer_url,omitempty"`
	IMDBLink     *string `json:"imdb_link,omitempty"`
}

func main() {
	filePath := flag.String("file", "", "путь к JSON-файлу с локациями (обязательный)")
	dryRun := flag.Bool("dry-run", false, "только валидация, без записи в базу")
	flag.Parse()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "использование: import-locations -file locations.json [-dry-run]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := config.SetupLogger(cfg)

	locations, err := readLocations(*filePath)
	if err != nil {
		logger.Error("Ошибка чтения файла", slog.String("file", *filePath), slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Файл прочитан",
		slog.String("file", *filePath),
		slog.Int("locations", len(locations)),
	)

	if *dryRun {
		// Та же валидация, что и при импорте, но без подключения к базе
		for i, loc := range locations {
			if err := service.ValidateLocation(loc); err != nil {
				logger.Error("Локация не прошла валидацию",
					slog.Int("index", i),
					slog.String("title", loc.Title),
					slog.String("error", err.Error()),
				)
				os.Exit(1)
			}
		}
		logger.Info("Dry-run: все локации валидны", slog.Int("locations", len(locations)))
		return
	}

	ctx := context.Background()

	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	locSvc := service.NewLocationService(
		repository.NewLocationRepository(pool),
		cfg.CacheSize, cfg.CacheTTL,
		cfg.DBQueryTimeout,
		logger,
	)

	created, err := locSvc.Import(ctx, locations)
	if err != nil {
		logger.Error("Импорт прерван",
			slog.Int("created", created),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger.Info("Импорт завершён",
		slog.Int("total", len(locations)),
		slog.Int("created", created),
		slog.Int("skipped", len(locations)-created),
	)
}

// readLocations читает и декодирует JSON-файл с локациями.
func readLocations(path string) ([]*model.Location, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []importLocation
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("некорректный JSON: %w", err)
	}

	locations := make([]*model.Location, 0, len(records))
	for _, r := range records {
		locations = append(locations, &model.Location{
			ID:           r.ID,
			Title:        r.Title,
			MediaType:    model.MediaType(r.Type),
			Year:         r.Year,
			Lat:          r.Lat,
			Lng:          r.Lng,
			LocationName: r.LocationName,
			TrailerURL:   r.TrailerURL,
			IMDBLink:     r.IMDBLink,
		})
	}
	return locations, nil
}
