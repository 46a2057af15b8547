package host

import (
	"context"
	"errors"
	"sync"
)

var ErrReleased = errors.New("reader already released")

// MemorySource serves a fixed DataTable. It counts acquisitions and
// releases so callers can check that readers do not leak.
type MemorySource struct {
	Table *DataTable
	// AcquireErr and ReadErr make the corresponding step fail.
	AcquireErr error
	ReadErr    error
	// LegacyTable, when set, is served by SummaryData.
	LegacyTable *DataTable
	LegacyErr   error

	mu       sync.Mutex
	acquired int
	released int
}

var (
	_ DataSource       = &MemorySource{}
	_ LegacyDataSource = &MemorySource{}
)

func (m *MemorySource) AcquireReader(ctx context.Context, opts ReaderOptions) (Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.AcquireErr != nil {
		return nil, m.AcquireErr
	}
	m.mu.Lock()
	m.acquired++
	m.mu.Unlock()
	return &memoryReader{src: m}, nil
}

func (m *MemorySource) SummaryData(ctx context.Context, opts ReaderOptions) (*DataTable, error) {
	if m.LegacyErr != nil {
		return nil, m.LegacyErr
	}
	if m.LegacyTable == nil {
		return nil, errors.New("legacy summary data not available")
	}
	return m.LegacyTable, nil
}

// Outstanding is the number of acquired readers not yet released.
func (m *MemorySource) Outstanding() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired - m.released
}

func (m *MemorySource) Acquired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired
}

type memoryReader struct {
	src      *MemorySource
	released bool
}

func (r *memoryReader) GetAllPages(ctx context.Context) (*DataTable, error) {
	if r.released {
		return nil, ErrReleased
	}
	if r.src.ReadErr != nil {
		return nil, r.src.ReadErr
	}
	if r.src.Table == nil {
		return &DataTable{}, nil
	}
	return r.src.Table, nil
}

func (r *memoryReader) Release(ctx context.Context) error {
	if r.released {
		return ErrReleased
	}
	r.released = true
	r.src.mu.Lock()
	r.src.released++
	r.src.mu.Unlock()
	return nil
}

// MemorySettings is an in-memory SettingsStore.
type MemorySettings struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ BatchSettingsStore = &MemorySettings{}

func NewMemorySettings(values map[string]string) *MemorySettings {
	m := &MemorySettings{values: make(map[string]string, len(values))}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

func (m *MemorySettings) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemorySettings) Set(ctx context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
	return nil
}

func (m *MemorySettings) SetMany(ctx context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]string, len(values))
	}
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}
