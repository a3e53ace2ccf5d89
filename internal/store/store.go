// Package store keeps finished analysis reports for the read-only tools.
package store

import (
	"sort"
	"sync"

	"github.com/dgnsrekt/webscope/internal/report"
)

// Store is the process-lifetime URL→report cache. Last write wins: a second
// analysis of the same URL replaces the stored report, and concurrent
// analyses of the same URL race non-deterministically.
type Store interface {
	Get(url string) (*report.Report, bool)
	Set(r *report.Report)
	Clear()
	Count() int
	URLs() []string
}

// Memory is the in-process Store implementation. Nothing survives restart.
type Memory struct {
	mu      sync.RWMutex
	reports map[string]*report.Report
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{reports: make(map[string]*report.Report)}
}

func (m *Memory) Get(url string) (*report.Report, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[url]
	return r, ok
}

func (m *Memory) Set(r *report.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[r.URL] = r
}

func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = make(map[string]*report.Report)
}

func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reports)
}

// URLs returns the analyzed URLs in lexical order.
func (m *Memory) URLs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	urls := make([]string, 0, len(m.reports))
	for u := range m.reports {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}
