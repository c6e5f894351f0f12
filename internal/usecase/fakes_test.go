package usecase

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"github.com/fixora/spaceships/internal/domain"
	"github.com/fixora/spaceships/internal/ports"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// memoryRepo is an in-memory SpaceshipRepository with a unique name constraint
type memoryRepo struct {
	mu     sync.Mutex
	ships  map[int64]domain.Spaceship
	nextID int64
	reads  int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{ships: make(map[int64]domain.Spaceship)}
}

func (r *memoryRepo) sorted() []domain.Spaceship {
	out := make([]domain.Spaceship, 0, len(r.ships))
	for _, s := range r.ships {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memoryRepo) FindByID(ctx context.Context, id int64) (*domain.Spaceship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	ship, ok := r.ships[id]
	if !ok {
		return nil, domain.NewNotFoundError(id)
	}
	return &ship, nil
}

func (r *memoryRepo) List(ctx context.Context, req domain.PageRequest) (*domain.SpaceshipPage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	all := r.sorted()
	start := req.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + req.Size
	if end > len(all) {
		end = len(all)
	}
	return domain.NewSpaceshipPage(all[start:end], req, int64(len(all))), nil
}

func (r *memoryRepo) FindByNameContaining(ctx context.Context, fragment string) ([]domain.Spaceship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reads++
	out := []domain.Spaceship{}
	for _, s := range r.sorted() {
		if strings.Contains(strings.ToLower(s.Name), strings.ToLower(fragment)) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memoryRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.ships {
		if s.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) Save(ctx context.Context, ship *domain.Spaceship) (*domain.Spaceship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.ships {
		if s.Name == ship.Name && s.ID != ship.ID {
			return nil, domain.NewConflictError(nil)
		}
	}
	saved := *ship
	if saved.IsNew() {
		r.nextID++
		saved.ID = r.nextID
	} else if _, ok := r.ships[saved.ID]; !ok {
		return nil, domain.NewNotFoundError(saved.ID)
	}
	r.ships[saved.ID] = saved
	return &saved, nil
}

func (r *memoryRepo) DeleteByID(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ships[id]; !ok {
		return domain.NewNotFoundError(id)
	}
	delete(r.ships, id)
	return nil
}

func (r *memoryRepo) readCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads
}

// recordingNotifier remembers every enqueued text
type recordingNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (n *recordingNotifier) Enqueue(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
}

func (n *recordingNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.texts...)
}

// MockSpaceshipRepository is a mock implementation of SpaceshipRepository
type MockSpaceshipRepository struct {
	mock.Mock
}

func (m *MockSpaceshipRepository) FindByID(ctx context.Context, id int64) (*domain.Spaceship, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Spaceship), args.Error(1)
}

func (m *MockSpaceshipRepository) List(ctx context.Context, req domain.PageRequest) (*domain.SpaceshipPage, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SpaceshipPage), args.Error(1)
}

func (m *MockSpaceshipRepository) FindByNameContaining(ctx context.Context, fragment string) ([]domain.Spaceship, error) {
	args := m.Called(ctx, fragment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Spaceship), args.Error(1)
}

func (m *MockSpaceshipRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockSpaceshipRepository) Save(ctx context.Context, ship *domain.Spaceship) (*domain.Spaceship, error) {
	args := m.Called(ctx, ship)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Spaceship), args.Error(1)
}

func (m *MockSpaceshipRepository) DeleteByID(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockCache is a mock implementation of Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) ReadThrough(ctx context.Context, key string, dst any, load ports.Loader) error {
	args := m.Called(ctx, key, dst, load)
	return args.Error(0)
}

func (m *MockCache) InvalidateAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
