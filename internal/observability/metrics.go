package observability

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	latencyTotal map[string]time.Duration
	errorCount   map[string]int64
	eventCount   map[string]int64
}

// RequestStat is one request counter row of a snapshot.
type RequestStat struct {
	Route     string  `json:"route"`
	Method    string  `json:"method"`
	Status    int     `json:"status"`
	Count     int64   `json:"count"`
	AvgMillis float64 `json:"avg_ms"`
}

// ErrorStat is one error counter row of a snapshot.
type ErrorStat struct {
	Route  string `json:"route"`
	Method string `json:"method"`
	Code   string `json:"code"`
	Count  int64  `json:"count"`
}

// MetricsSnapshot is a point-in-time copy of all counters.
type MetricsSnapshot struct {
	Requests []RequestStat    `json:"requests"`
	Errors   []ErrorStat      `json:"errors"`
	Events   map[string]int64 `json:"events"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		latencyTotal: make(map[string]time.Duration),
		errorCount:   make(map[string]int64),
		eventCount:   make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.latencyTotal[key] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordEvent counts a published notification, keyed by outcome ("published", "failed").
func (m *Metrics) RecordEvent(outcome string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.eventCount[outcome]++
}

// Snapshot copies the counters, sorted by key.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		Requests: []RequestStat{},
		Errors:   []ErrorStat{},
		Events:   map[string]int64{},
	}
	if m == nil {
		return snap
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range sortedKeys(m.requestCount) {
		parts := strings.SplitN(key, "|", 3)
		status, _ := strconv.Atoi(parts[2])
		count := m.requestCount[key]
		avg := 0.0
		if count > 0 {
			avg = float64(m.latencyTotal[key].Microseconds()) / float64(count) / 1000
		}
		snap.Requests = append(snap.Requests, RequestStat{
			Route: parts[0], Method: parts[1], Status: status, Count: count, AvgMillis: avg,
		})
	}
	for _, key := range sortedKeys(m.errorCount) {
		parts := strings.SplitN(key, "|", 3)
		snap.Errors = append(snap.Errors, ErrorStat{
			Route: parts[0], Method: parts[1], Code: parts[2], Count: m.errorCount[key],
		})
	}
	for k, v := range m.eventCount {
		snap.Events[k] = v
	}
	return snap
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
