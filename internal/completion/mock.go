package completion

import (
	"context"
	"io"
	"sync"

	"github.com/thinktwice-ai/thinktwice/internal/history"
)

// MockSource is a scripted in-memory Source for tests and offline runs.
// Scripts holds one delta sequence per StreamGenerate call; when more calls
// arrive than scripts exist, the last script is replayed. JudgeFunc receives
// the auditor user prompt and a zero-based call counter so tests can vary
// verdicts and inject latency per unit.
type MockSource struct {
	Scripts   [][]string
	JudgeFunc func(ctx context.Context, userPrompt string, call int) (string, error)

	mu           sync.Mutex
	streamCalls  int
	judgeCalls   int
	temperatures []float32
}

// StreamGenerate implements [Source].
func (m *MockSource) StreamGenerate(ctx context.Context, _ []history.Message, temperature float32) (Stream, error) {
	m.mu.Lock()
	idx := m.streamCalls
	m.streamCalls++
	m.temperatures = append(m.temperatures, temperature)
	m.mu.Unlock()

	var deltas []string
	if len(m.Scripts) > 0 {
		if idx >= len(m.Scripts) {
			idx = len(m.Scripts) - 1
		}
		deltas = m.Scripts[idx]
	}
	return &mockStream{ctx: ctx, deltas: deltas}, nil
}

// Judge implements [Source].
func (m *MockSource) Judge(ctx context.Context, _, userPrompt string, _ float32) (string, error) {
	m.mu.Lock()
	call := m.judgeCalls
	m.judgeCalls++
	m.mu.Unlock()

	if m.JudgeFunc == nil {
		return "<status>OK</status>", nil
	}
	return m.JudgeFunc(ctx, userPrompt, call)
}

// StreamCalls reports how many generation streams were opened.
func (m *MockSource) StreamCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streamCalls
}

// JudgeCalls reports how many judgments were requested.
func (m *MockSource) JudgeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.judgeCalls
}

// Temperatures returns the generation temperatures observed, in call order.
func (m *MockSource) Temperatures() []float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]float32, len(m.temperatures))
	copy(out, m.temperatures)
	return out
}

type mockStream struct {
	ctx    context.Context
	deltas []string
	pos    int
}

func (s *mockStream) Recv() (string, error) {
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	if s.pos >= len(s.deltas) {
		return "", io.EOF
	}
	delta := s.deltas[s.pos]
	s.pos++
	return delta, nil
}

func (s *mockStream) Close() error { return nil }
