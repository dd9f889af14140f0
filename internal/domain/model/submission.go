package model

import "time"

// SubmissionStatus — статус заявки в workflow модерации.
type SubmissionStatus string

const (
	// StatusPending — заявка ожидает решения модератора.
	StatusPending SubmissionStatus = "pending"
	// StatusApproved — заявка одобрена, Location опубликована. Терминальный статус.
	StatusApproved SubmissionStatus = "approved"
	// StatusRejected — заявка отклонена. Терминальный статус.
	StatusRejected SubmissionStatus = "rejected"
)

// ValidSubmissionStatus проверяет, что значение входит в допустимый набор.
func ValidSubmissionStatus(s SubmissionStatus) bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

// Submission — пользовательская заявка на добавление локации.
// Единственные допустимые переходы статуса: pending → approved и
// pending → rejected; терминальные статусы не переоткрываются.
// После разрешения заявка хранится бессрочно (аудит), не удаляется.
type Submission struct {
	// ID — UUID заявки (назначается store при создании)
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
	// Status — статус модерации (pending, approved, rejected)
	Status SubmissionStatus
	// SubmittedAt — время подачи заявки
	SubmittedAt time.Time
	// UpdatedAt — время последнего изменения (решение модератора)
	UpdatedAt time.Time
}

// Moderator — идентичность, авторизованная разрешать заявки.
// UID приходит из внешнего identity provider (Firebase);
// членство — простое множество: UID либо есть, либо нет.
// Провижининг — административное действие (cmd/add-moderator).
type Moderator struct {
	// UID — стабильный идентификатор из Firebase
	UID string
	// Email — электронная почта (опционально, для справки)
	Email *string
	// CreatedAt — время добавления
	CreatedAt time.Time
}
