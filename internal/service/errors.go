// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт: заявка уже разрешена или ресурс дублируется.
	ErrConflict = errors.New("конфликт — заявка уже разрешена")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrStoreUnavailable — хранилище временно недоступно, операция retryable.
	ErrStoreUnavailable = errors.New("хранилище временно недоступно")
	// ErrPartiallyApplied — операция модерации применена частично:
	// локация опубликована, но статус заявки не обновился.
	// Возможна только на store без транзакций.
	ErrPartiallyApplied = errors.New("операция применена частично")
)
