package vision

import (
	"context"
	"sync"
)

// MockModel is a test implementation of Model.
//
// Use MockModel in tests to verify sweep behavior without making actual
// vision API calls. It provides:
//   - Configurable responses
//   - Call history tracking
//   - Error injection
//   - Thread-safe operation
//
// Example usage:
//
//	mock := &MockModel{
//	    Responses: []Answer{
//	        {Text: "yes"},
//	        {Text: "no"},
//	    },
//	}
//	ans, err := mock.AskImage(ctx, q)
//	// Returns "yes", then "no" on subsequent calls
//
// Example with error injection:
//
//	mock := &MockModel{Err: errors.New("API error")}
//	_, err := mock.AskImage(ctx, q)
//	// Returns the configured error
type MockModel struct {
	// Responses contains the sequence of answers to return.
	// Each call to AskImage() returns the next answer in order.
	// If all answers are consumed, the last answer repeats.
	Responses []Answer

	// Err, if set, will be returned by AskImage() instead of an answer.
	Err error

	// ErrsBeforeSuccess injects Err for the first N calls, then answers
	// normally. Used to exercise retry paths. Ignored when zero.
	ErrsBeforeSuccess int

	// AnswerFunc, if set, computes the answer from the query and overrides
	// the Responses sequence. Useful for per-object scripted behavior.
	AnswerFunc func(q ImageQuery) (Answer, error)

	// Calls tracks the history of all AskImage() invocations.
	Calls []ImageQuery

	mu        sync.Mutex
	callIndex int
	errCount  int
}

// AskImage implements the Model interface.
//
// Always records the call in Calls history regardless of success/failure.
func (m *MockModel) AskImage(ctx context.Context, q ImageQuery) (Answer, error) {
	if ctx.Err() != nil {
		return Answer{}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, q)

	if m.AnswerFunc != nil {
		return m.AnswerFunc(q)
	}

	if m.Err != nil {
		if m.ErrsBeforeSuccess == 0 {
			return Answer{}, m.Err
		}
		if m.errCount < m.ErrsBeforeSuccess {
			m.errCount++
			return Answer{}, m.Err
		}
	}

	if len(m.Responses) == 0 {
		return Answer{}, nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1 // Repeat last answer
	} else {
		m.callIndex++
	}

	return m.Responses[idx], nil
}

// Reset clears the call history and response/error indexes.
func (m *MockModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = nil
	m.callIndex = 0
	m.errCount = 0
}

// CallCount returns the number of times AskImage() has been called.
func (m *MockModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
