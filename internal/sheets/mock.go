package sheets

import (
	"context"
	"sync"

	"github.com/Veraticus/carga/internal/model"
	"github.com/Veraticus/carga/internal/service"
)

// MockWriter is a mock implementation of ReportWriter for testing.
type MockWriter struct {
	WriteFunc   func(ctx context.Context, summary model.Summary, period service.ReportPeriod) error
	WriteCalls  []WriteCall
	LastSummary model.Summary
	LastPeriod  service.ReportPeriod
	mu          sync.Mutex
}

// WriteCall represents a single call to Write.
type WriteCall struct {
	Error   error
	Period  service.ReportPeriod
	Summary model.Summary
}

var _ service.ReportWriter = (*MockWriter)(nil)

// NewMockWriter creates a new mock writer.
func NewMockWriter() *MockWriter {
	return &MockWriter{}
}

// Write implements the ReportWriter interface.
func (m *MockWriter) Write(ctx context.Context, summary model.Summary, period service.ReportPeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastSummary = summary
	m.LastPeriod = period

	var err error
	if m.WriteFunc != nil {
		err = m.WriteFunc(ctx, summary, period)
	}
	m.WriteCalls = append(m.WriteCalls, WriteCall{Summary: summary, Period: period, Error: err})
	return err
}

// GetWriteCalls returns a copy of all write calls.
func (m *MockWriter) GetWriteCalls() []WriteCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]WriteCall, len(m.WriteCalls))
	copy(calls, m.WriteCalls)
	return calls
}

// SetWriteError configures the mock to fail every Write call with err.
func (m *MockWriter) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteFunc = func(context.Context, model.Summary, service.ReportPeriod) error {
		return err
	}
}
