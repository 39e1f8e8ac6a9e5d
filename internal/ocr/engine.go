package ocr

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
)

// Engine starts OCR sessions. A session is owned by one caller and is not
// safe for concurrent use.
type Engine interface {
	Start(ctx context.Context, language string) (Session, error)
}

// Session is one started engine. Close releases it; calls after the first
// return nil.
type Session interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
	Close() error
}

var ErrSessionClosed = errors.New("ocr session closed")

// TesseractEngine runs the tesseract CLI once per Recognize call.
type TesseractEngine struct {
	bin         string
	tessdataDir string
	psm         int
	runner      Runner
	lookPath    func(string) (string, error)
}

func NewTesseractEngine(cfg Config, runner Runner) *TesseractEngine {
	bin := cfg.Tesseract
	if bin == "" {
		bin = "tesseract"
	}
	if runner == nil {
		runner = newExecRunner(nil)
	}
	return &TesseractEngine{
		bin:         bin,
		tessdataDir: cfg.TessdataDir,
		psm:         cfg.PSM,
		runner:      runner,
		lookPath:    exec.LookPath,
	}
}

func (t *TesseractEngine) Start(_ context.Context, language string) (Session, error) {
	path, err := t.lookPath(t.bin)
	if err != nil {
		return nil, fmt.Errorf("locate %s: %w", t.bin, err)
	}
	return &tesseractSession{engine: t, bin: path, lang: language}, nil
}

type tesseractSession struct {
	engine *TesseractEngine
	bin    string
	lang   string

	mu     sync.Mutex
	closed bool
}

func (s *tesseractSession) Recognize(ctx context.Context, imagePath string) (string, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return "", ErrSessionClosed
	}

	// tesseract <file> stdout -l <lang>
	args := []string{imagePath, "stdout", "-l", s.lang}
	if s.engine.psm > 0 {
		args = append(args, "--psm", strconv.Itoa(s.engine.psm))
	}
	if s.engine.tessdataDir != "" {
		args = append(args, "--tessdata-dir", s.engine.tessdataDir)
	}
	out, errb, err := s.engine.runner.Run(ctx, s.bin, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

func (s *tesseractSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
