package ingest

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joseph-ayodele/docu-prompt-engine/constants"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/common"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/entity"
)

// ErrTooLarge is returned when an incoming file exceeds the size ceiling.
var ErrTooLarge = errors.New("file exceeds size limit")

// Stager copies incoming files into the upload directory under a
// "<unix-millis><ext>" name. The pipeline owns the staged copy.
type Stager struct {
	dir      string
	maxBytes int64
	now      func() time.Time
}

func NewStager(dir string, maxBytes int64) (*Stager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = constants.MaxUploadBytes
	}
	return &Stager{dir: dir, maxBytes: maxBytes, now: time.Now}, nil
}

func (s *Stager) Dir() string { return s.dir }

// Check validates an original file name and declared size before any bytes
// are written. size < 0 means unknown.
func (s *Stager) Check(originalName string, size int64) error {
	ext := filepath.Ext(originalName)
	if !constants.IsAllowedExt(ext) {
		return common.UnsupportedFormatError(constants.NormalizeExt(ext))
	}
	if size > s.maxBytes {
		return common.NewAppError(common.KindInvalidInput,
			fmt.Sprintf("%s is %d bytes, limit is %d", originalName, size, s.maxBytes),
			fmt.Errorf("%w: %w", common.ErrInvalidInput, ErrTooLarge))
	}
	return nil
}

// Stage writes r to a new file in the upload dir.
func (s *Stager) Stage(r io.Reader, originalName string) (entity.SourceFile, error) {
	if err := s.Check(originalName, -1); err != nil {
		return entity.SourceFile{}, err
	}
	f, err := s.create(filepath.Ext(originalName))
	if err != nil {
		return entity.SourceFile{}, err
	}
	path := f.Name()

	n, err := io.Copy(f, io.LimitReader(r, s.maxBytes+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > s.maxBytes {
		err = s.Check(originalName, n)
	}
	if err != nil {
		_ = os.Remove(path)
		return entity.SourceFile{}, err
	}
	return entity.SourceFile{Path: path, OriginalName: filepath.Base(originalName)}, nil
}

// StagePath moves the file at path into the upload dir.
func (s *Stager) StagePath(path string) (entity.SourceFile, error) {
	in, err := os.Open(path)
	if err != nil {
		return entity.SourceFile{}, err
	}
	src, err := s.Stage(in, filepath.Base(path))
	_ = in.Close()
	if err != nil {
		return entity.SourceFile{}, err
	}
	if err := os.Remove(path); err != nil {
		_ = os.Remove(src.Path)
		return entity.SourceFile{}, fmt.Errorf("remove inbox file: %w", err)
	}
	return src, nil
}

func (s *Stager) create(ext string) (*os.File, error) {
	base := strconv.FormatInt(s.now().UnixMilli(), 10)
	name := base + ext
	for i := 1; ; i++ {
		f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrExist) || i > 1000 {
			return nil, fmt.Errorf("create staged file: %w", err)
		}
		name = base + "-" + strconv.Itoa(i) + ext
	}
}
