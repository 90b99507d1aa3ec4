package testutil

import (
	"fmt"
	"instametrics/internal/providers"
	"strings"
	"sync"
	"time"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (e LogEntry) Message() string {
	return fmt.Sprintf(e.Format, e.Args...)
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Contains reports whether any entry at level has a message containing substr.
func (m *MockLogger) Contains(level, substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Logs {
		if e.Level == level && strings.Contains(e.Message(), substr) {
			return true
		}
	}
	return false
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu             sync.Mutex
	UpstreamCalls  map[string]int
	Degraded       map[string]int
	CollectorRuns  map[string]int
	BreakerStates  map[string]float64
	SnapshotsPurge int
	CacheHits      map[string]int
	CacheMisses    map[string]int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		UpstreamCalls: make(map[string]int),
		Degraded:      make(map[string]int),
		CollectorRuns: make(map[string]int),
		BreakerStates: make(map[string]float64),
		CacheHits:     make(map[string]int),
		CacheMisses:   make(map[string]int),
	}
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits(resource string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits[resource]++
}
func (m *MockMetrics) IncCacheMisses(resource string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses[resource]++
}
func (m *MockMetrics) IncUpstreamCalls(endpoint, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpstreamCalls[endpoint+":"+outcome]++
}
func (m *MockMetrics) ObserveUpstreamDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) SetBreakerState(name string, state float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BreakerStates[name] = state
}
func (m *MockMetrics) IncDegraded(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Degraded[operation]++
}
func (m *MockMetrics) IncCollectorRuns(job, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CollectorRuns[job+":"+outcome]++
}
func (m *MockMetrics) ObserveCollectorDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) AddSnapshotsPurged(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SnapshotsPurge += count
}

// DegradedCount is safe to call concurrently with recording.
func (m *MockMetrics) DegradedCount(operation string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Degraded[operation]
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	// Default: return as-is (identity)
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() {}
