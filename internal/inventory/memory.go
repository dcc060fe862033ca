package inventory

import (
	"context"
	"sync"
)

type memoryCountry struct {
	numbers []string
	queued  map[string]struct{}
}

type memoryService struct {
	countries map[string]*memoryCountry
	order     []string
}

// MemoryStore keeps the inventory in process memory behind a single RWMutex.
type MemoryStore struct {
	mu       sync.RWMutex
	services map[string]*memoryService
	order    []string
	pageSize int
}

// NewMemoryStore creates an empty inventory. A non-positive pageSize falls back to DefaultPageSize.
func NewMemoryStore(pageSize int) *MemoryStore {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &MemoryStore{
		services: make(map[string]*memoryService),
		pageSize: pageSize,
	}
}

func (s *MemoryStore) CreateService(_ context.Context, name string) error {
	if err := validateName("service", name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.services[name]; ok {
		return alreadyExists("service", name)
	}

	s.services[name] = &memoryService{countries: make(map[string]*memoryCountry)}
	s.order = append(s.order, name)
	return nil
}

func (s *MemoryStore) DeleteService(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.services[name]; !ok {
		return notFound("service", name)
	}

	delete(s.services, name)
	s.order = without(s.order, name)
	return nil
}

func (s *MemoryStore) CreateCountry(_ context.Context, service, name string) error {
	if err := validateName("country", name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	svc, ok := s.services[service]
	if !ok {
		return serviceNotFound(service)
	}
	if _, ok := svc.countries[name]; ok {
		return alreadyExists("country", name)
	}

	svc.addCountry(name)
	return nil
}

func (s *MemoryStore) DeleteCountry(_ context.Context, service, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc, ok := s.services[service]
	if !ok {
		return notFound("service", service)
	}
	if _, ok := svc.countries[name]; !ok {
		return notFound("country", name)
	}

	delete(svc.countries, name)
	svc.order = without(svc.order, name)
	return nil
}

func (s *MemoryStore) AppendNumbers(_ context.Context, service, country string, numbers []string) (int, error) {
	if err := validateName("country", country); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	svc, ok := s.services[service]
	if !ok {
		return 0, serviceNotFound(service)
	}

	ctry, ok := svc.countries[country]
	if !ok {
		ctry = svc.addCountry(country)
	}

	fresh := uniqueFresh(ctry.queued, numbers)
	for _, number := range fresh {
		ctry.queued[number] = struct{}{}
	}
	ctry.numbers = append(ctry.numbers, fresh...)

	return len(fresh), nil
}

func (s *MemoryStore) TakeFront(_ context.Context, service, country string, n int) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctry := s.country(service, country)
	if ctry == nil || len(ctry.numbers) == 0 {
		return []string{}, nil
	}

	if n > len(ctry.numbers) {
		n = len(ctry.numbers)
	}

	taken := make([]string, n)
	copy(taken, ctry.numbers[:n])
	ctry.numbers = append([]string(nil), ctry.numbers[n:]...)
	for _, number := range taken {
		delete(ctry.queued, number)
	}

	return taken, nil
}

func (s *MemoryStore) RemainingCount(_ context.Context, service, country string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctry := s.country(service, country)
	if ctry == nil {
		return 0, nil
	}
	return len(ctry.numbers), nil
}

func (s *MemoryStore) Services(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]string{}, s.order...), nil
}

func (s *MemoryStore) Countries(_ context.Context, service string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	svc, ok := s.services[service]
	if !ok {
		return nil, serviceNotFound(service)
	}
	return append([]string{}, svc.order...), nil
}

func (s *MemoryStore) PageSize(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.pageSize, nil
}

func (s *MemoryStore) SetPageSize(_ context.Context, n int) error {
	if err := validatePageSize(n); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pageSize = n
	return nil
}

func (s *MemoryStore) country(service, country string) *memoryCountry {
	svc, ok := s.services[service]
	if !ok {
		return nil
	}
	return svc.countries[country]
}

func (svc *memoryService) addCountry(name string) *memoryCountry {
	ctry := &memoryCountry{queued: make(map[string]struct{})}
	svc.countries[name] = ctry
	svc.order = append(svc.order, name)
	return ctry
}

func without(list []string, name string) []string {
	out := list[:0]
	for _, item := range list {
		if item != name {
			out = append(out, item)
		}
	}
	return out
}
