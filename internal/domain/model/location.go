// Пакет model — доменные модели MovieMap API.
package model

import "time"

// MediaType — тип медиа локации.
type MediaType string

const (
	// MediaTypeMovie — художественный фильм.
	MediaTypeMovie MediaType = "movie"
	// MediaTypeTV — сериал.
	MediaTypeTV MediaType = "tv"
)

// ValidMediaType проверяет, что значение входит в допустимый набор.
func ValidMediaType(t MediaType) bool {
	return t == MediaTypeMovie || t == MediaTypeTV
}

// Location — одобренная публичная съёмочная локация.
// Создаётся только Moderation Engine при approve заявки;
// после создания неизменяема (административное удаление вне объёма API).
type Location struct {
	// ID — UUID локации (назначается store при создании)
	ID string
	// Title — название фильма или сериала
	Title string
	// MediaType — тип медиа (movie, tv)
	MediaType MediaType
	// Year — год выхода (опционально)
	Year *int
	// Lat — широта, диапазон [-90, 90]
	Lat float64
	// Lng — долгота, диапазон [-180, 180]
	Lng float64
	// LocationName — человекочитаемое название места (опционально)
	LocationName *string
	// TrailerURL — внешняя ссылка на трейлер (опционально)
	TrailerURL *string
	// IMDBLink — внешняя ссылка на каталог IMDB (опционально)
	IMDBLink *string
	// CreatedAt — время создания записи
	CreatedAt time.Time
}
