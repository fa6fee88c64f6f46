package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/dailyyoga/warmcache/logger"
)

func testLogger(t *testing.T) logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "debug", Encoding: "console"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return log
}

// testConfig keeps retries fast
func testConfig() *Config {
	return &Config{
		Name:         "test",
		Timeout:      time.Second,
		MaxRetries:   1,
		RetryBackoff: time.Millisecond,
		MaxBackoff:   5 * time.Millisecond,
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

type fakeMetrics struct {
	mu          sync.Mutex
	successes   int
	failures    int
	version     uint64
	consecutive uint64
}

func (m *fakeMetrics) ObserveRefresh(_ string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.failures++
	} else {
		m.successes++
	}
}

func (m *fakeMetrics) SetVersion(_ string, v uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.version = v
}

func (m *fakeMetrics) SetConsecutiveFailures(_ string, n uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consecutive = n
}

func (m *fakeMetrics) snapshot() (successes, failures int, version, consecutive uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.successes, m.failures, m.version, m.consecutive
}
