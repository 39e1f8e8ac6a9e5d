package ocrtest

import (
	"context"
	"errors"
	"sync"

	"github.com/joseph-ayodele/docu-prompt-engine/internal/ocr"
)

// Engine is an in-memory ocr.Engine that records session lifecycles.
type Engine struct {
	// Texts maps an image path to its recognized text.
	Texts map[string]string
	// Fail maps an image path to the error Recognize returns for it.
	Fail map[string]error
	// StartErr, when set, makes every Start fail.
	StartErr error
	// Block lists image paths whose Recognize waits for its context to end.
	Block map[string]bool

	mu     sync.Mutex
	starts int
	closes int
	double int
}

func (e *Engine) Start(_ context.Context, _ string) (ocr.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.StartErr != nil {
		return nil, e.StartErr
	}
	e.starts++
	return &session{engine: e}, nil
}

// Counts returns the number of started sessions, closed sessions and
// repeated Close calls.
func (e *Engine) Counts() (starts, closes, doubleCloses int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.starts, e.closes, e.double
}

type session struct {
	engine *Engine
	closed bool
}

func (s *session) Recognize(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.closed {
		return "", ocr.ErrSessionClosed
	}
	if s.engine.Block[path] {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err, ok := s.engine.Fail[path]; ok {
		return "", err
	}
	if txt, ok := s.engine.Texts[path]; ok {
		return txt, nil
	}
	return "", errors.New("no text configured for " + path)
}

func (s *session) Close() error {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	if s.closed {
		s.engine.double++
		return nil
	}
	s.closed = true
	s.engine.closes++
	return nil
}
