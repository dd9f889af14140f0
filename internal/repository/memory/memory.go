// Пакет memory — in-memory реализация репозиториев для тестов.
// Повторяет семантику PostgreSQL-слоя: те же ошибки, та же условная
// запись статуса. Поддерживает инъекцию сбоев и транзакции через
// snapshot с откатом.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/natethegreat418/movemaps/internal/domain/model"
	"github.com/natethegreat418/movemaps/internal/repository"
)

// Store — in-memory хранилище всех таблиц.
// Хуки Fail* позволяют тестам имитировать сбои store между шагами
// операции (transient-ошибки, частичное применение).
type Store struct {
	mu sync.Mutex

	locations   map[string]model.Location
	submissions map[string]model.Submission
	moderators  map[string]model.Moderator

	// FailLocationCreate — если не nil, Create локации вернёт эту ошибку.
	FailLocationCreate error
	// FailFlip — если > 0, очередной SetStatusFromPending вернёт
	// ErrUnavailable и уменьшит счётчик. Для проверки retry-логики.
	FailFlip int
	// FailModeratorExists — если не nil, Exists вернёт эту ошибку.
	FailModeratorExists error
}

// NewStore создаёт пустое хранилище.
func NewStore() *Store {
	return &Store{
		locations:   make(map[string]model.Location),
		submissions: make(map[string]model.Submission),
		moderators:  make(map[string]model.Moderator),
	}
}

// Stores возвращает набор репозиториев поверх этого хранилища.
func (s *Store) Stores() repository.Stores {
	return repository.Stores{
		Locations:   &locationRepo{s: s},
		Submissions: &submissionRepo{s: s},
	}
}

// Locations возвращает репозиторий локаций.
func (s *Store) Locations() repository.LocationRepository { return &locationRepo{s: s} }

// Submissions возвращает репозиторий заявок.
func (s *Store) Submissions() repository.SubmissionRepository { return &submissionRepo{s: s} }

// Moderators возвращает репозиторий модераторов.
func (s *Store) Moderators() repository.ModeratorRepository { return &moderatorRepo{s: s} }

// RunInTx выполняет fn атомарно: перед вызовом снимается snapshot,
// при ошибке fn состояние откатывается к нему.
func (s *Store) RunInTx(_ context.Context, fn func(st repository.Stores) error) error {
	s.mu.Lock()
	locSnap := cloneMap(s.locations)
	subSnap := cloneMap(s.submissions)
	modSnap := cloneMap(s.moderators)
	s.mu.Unlock()

	if err := fn(s.Stores()); err != nil {
		s.mu.Lock()
		s.locations = locSnap
		s.submissions = subSnap
		s.moderators = modSnap
		s.mu.Unlock()
		return err
	}
	return nil
}

func cloneMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SeedLocation кладёт локацию в хранилище напрямую, минуя Create.
func (s *Store) SeedLocation(l model.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[l.ID] = l
}

// SeedSubmission кладёт заявку в хранилище напрямую, с любым статусом.
func (s *Store) SeedSubmission(sub model.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[sub.ID] = sub
}

// SeedModerator добавляет uid в список модераторов.
func (s *Store) SeedModerator(uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moderators[uid] = model.Moderator{UID: uid, CreatedAt: time.Now()}
}

type locationRepo struct {
	s *Store
}

func (r *locationRepo) List(_ context.Context) ([]*model.Location, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	result := make([]*model.Location, 0, len(r.s.locations))
	for _, l := range r.s.locations {
		l := l
		result = append(result, &l)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *locationRepo) GetByID(_ context.Context, id string) (*model.Location, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	l, ok := r.s.locations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (r *locationRepo) Create(_ context.Context, l *model.Location) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.FailLocationCreate != nil {
		return r.s.FailLocationCreate
	}
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if _, exists := r.s.locations[l.ID]; exists {
		return fmt.Errorf("%w: локация с таким ID уже существует", repository.ErrConflict)
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	r.s.locations[l.ID] = *l
	return nil
}

type submissionRepo struct {
	s *Store
}

func (r *submissionRepo) Create(_ context.Context, sub *model.Submission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if _, exists := r.s.submissions[sub.ID]; exists {
		return fmt.Errorf("%w: заявка с таким ID уже существует", repository.ErrConflict)
	}
	sub.Status = model.StatusPending
	now := time.Now()
	sub.SubmittedAt = now
	sub.UpdatedAt = now
	r.s.submissions[sub.ID] = *sub
	return nil
}

func (r *submissionRepo) ListByStatus(_ context.Context, status model.SubmissionStatus) ([]*model.Submission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []*model.Submission
	for _, sub := range r.s.submissions {
		if sub.Status == status {
			sub := sub
			result = append(result, &sub)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SubmittedAt.After(result[j].SubmittedAt)
	})
	return result, nil
}

func (r *submissionRepo) GetByID(_ context.Context, id string) (*model.Submission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sub, ok := r.s.submissions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sub, nil
}

func (r *submissionRepo) SetStatus(_ context.Context, id string, status model.SubmissionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sub, ok := r.s.submissions[id]
	if !ok {
		return repository.ErrNotFound
	}
	sub.Status = status
	sub.UpdatedAt = time.Now()
	r.s.submissions[id] = sub
	return nil
}

func (r *submissionRepo) SetStatusFromPending(_ context.Context, id string, to model.SubmissionStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.FailFlip > 0 {
		r.s.FailFlip--
		return fmt.Errorf("%w: инъекция сбоя", repository.ErrUnavailable)
	}

	sub, ok := r.s.submissions[id]
	if !ok {
		return repository.ErrNotFound
	}
	if sub.Status != model.StatusPending {
		return fmt.Errorf("%w: заявка уже в статусе %s", repository.ErrConflict, sub.Status)
	}
	sub.Status = to
	sub.UpdatedAt = time.Now()
	r.s.submissions[id] = sub
	return nil
}

type moderatorRepo struct {
	s *Store
}

func (r *moderatorRepo) Exists(_ context.Context, uid string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.FailModeratorExists != nil {
		return false, r.s.FailModeratorExists
	}
	_, ok := r.s.moderators[uid]
	return ok, nil
}

func (r *moderatorRepo) Add(_ context.Context, m *model.Moderator) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.moderators[m.UID]; exists {
		return fmt.Errorf("%w: модератор %s уже добавлен", repository.ErrConflict, m.UID)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	r.s.moderators[m.UID] = *m
	return nil
}

func (r *moderatorRepo) List(_ context.Context) ([]*model.Moderator, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	result := make([]*model.Moderator, 0, len(r.s.moderators))
	for _, m := range r.s.moderators {
		m := m
		result = append(result, &m)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
