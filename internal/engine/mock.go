package engine

import (
	"context"
	"sync/atomic"
)

const MockEngineName = "mock"

// Mock is an Engine for testing.
type Mock struct {
	// Configurable behavior
	Angle          float64
	AngleErr       error
	Text           string
	Confidences    []int
	RecognizeErr   error
	FailRecognizes int // fail the first N Recognize calls (0 = never)

	// State
	orientationCalls atomic.Int64
	recognizeCalls   atomic.Int64
}

// NewMock creates a mock engine with sensible defaults.
func NewMock() *Mock {
	return &Mock{
		Text:        "mock recognized text",
		Confidences: []int{90, 85, 95},
	}
}

// Name returns the engine identifier.
func (m *Mock) Name() string {
	return MockEngineName
}

// DetectOrientation returns the configured angle or error.
func (m *Mock) DetectOrientation(ctx context.Context, image []byte) (float64, error) {
	m.orientationCalls.Add(1)
	if m.AngleErr != nil {
		return 0, m.AngleErr
	}
	return m.Angle, nil
}

// Recognize returns the configured text and confidences.
func (m *Mock) Recognize(ctx context.Context, image []byte, language string) (*Result, error) {
	n := m.recognizeCalls.Add(1)
	if m.RecognizeErr != nil {
		return nil, m.RecognizeErr
	}
	if m.FailRecognizes > 0 && n <= int64(m.FailRecognizes) {
		return nil, ErrProcessingFailure
	}
	confs := make([]int, len(m.Confidences))
	copy(confs, m.Confidences)
	return &Result{Text: m.Text, TokenConfidences: confs}, nil
}

// OrientationCalls reports how many times DetectOrientation ran.
func (m *Mock) OrientationCalls() int {
	return int(m.orientationCalls.Load())
}

// RecognizeCalls reports how many times Recognize ran.
func (m *Mock) RecognizeCalls() int {
	return int(m.recognizeCalls.Load())
}
