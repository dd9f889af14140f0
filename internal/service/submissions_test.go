package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/natethegreat418/movemaps/internal/domain/model"
	"github.com/natethegreat418/movemaps/internal/repository/memory"
)

func newSubmissionEnv() (*memory.Store, *SubmissionService) {
	store := memory.NewStore()
	svc := NewSubmissionService(store.Submissions(), time.Second, testLogger())
	return store, svc
}

func TestSubmitForcesPending(t *testing.T) {
	store, svc := newSubmissionEnv()
	ctx := context.Background()

	// Клиент пытается протащить статус approved
	sub := &model.Submission{
		Title:     "Lost in Translation",
		MediaType: model.MediaTypeMovie,
		Lat:       35.6595,
		Lng:       139.7005,
		Status:    model.StatusApproved,
	}
	if err := svc.Submit(ctx, sub); err != nil {
		t.Fatalf("Submit() ошибка: %v", err)
	}

	got, err := store.Submissions().GetByID(ctx, sub.ID)
	if err != nil {
		t.Fatalf("GetByID() ошибка: %v", err)
	}
	if got.Status != model.StatusPending {
		t.Errorf("Status = %q, хотели pending", got.Status)
	}
}

func TestSubmitValidation(t *testing.T) {
	_, svc := newSubmissionEnv()
	ctx := context.Background()

	year := 1700
	tests := []struct {
		name string
		sub  model.Submission
	}{
		{"пустой title", model.Submission{MediaType: model.MediaTypeMovie, Lat: 0, Lng: 0}},
		{"недопустимый media_type", model.Submission{Title: "X", MediaType: "anime", Lat: 0, Lng: 0}},
		{"lat вне диапазона", model.Submission{Title: "X", MediaType: model.MediaTypeMovie, Lat: 91, Lng: 0}},
		{"lng вне диапазона", model.Submission{Title: "X", MediaType: model.MediaTypeMovie, Lat: 0, Lng: -181}},
		{"year вне диапазона", model.Submission{Title: "X", MediaType: model.MediaTypeMovie, Lat: 0, Lng: 0, Year: &year}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := tt.sub
			if err := svc.Submit(ctx, &sub); !errors.Is(err, ErrValidation) {
				t.Errorf("ожидали ErrValidation, получили: %v", err)
			}
		})
	}
}

func TestListByStatus(t *testing.T) {
	store, svc := newSubmissionEnv()
	ctx := context.Background()

	for _, title := range []string{"Her", "Heat"} {
		sub := &model.Submission{Title: title, MediaType: model.MediaTypeMovie, Lat: 34, Lng: -118}
		if err := svc.Submit(ctx, sub); err != nil {
			t.Fatalf("Submit(%s) ошибка: %v", title, err)
		}
	}
	store.SeedSubmission(model.Submission{
		ID: "resolved-1", Title: "Old", MediaType: model.MediaTypeMovie,
		Lat: 1, Lng: 1, Status: model.StatusApproved,
		SubmittedAt: time.Now(), UpdatedAt: time.Now(),
	})

	pending, err := svc.ListByStatus(ctx, model.StatusPending)
	if err != nil {
		t.Fatalf("ListByStatus() ошибка: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("pending = %d записей, хотели 2", len(pending))
	}

	approved, err := svc.ListByStatus(ctx, model.StatusApproved)
	if err != nil {
		t.Fatalf("ListByStatus(approved) ошибка: %v", err)
	}
	if len(approved) != 1 {
		t.Errorf("approved = %d записей, хотели 1", len(approved))
	}

	// Недопустимый статус — ошибка валидации, не пустой список
	_, err = svc.ListByStatus(ctx, model.SubmissionStatus("draft"))
	if !errors.Is(err, ErrValidation) {
		t.Errorf("ожидали ErrValidation, получили: %v", err)
	}
}
