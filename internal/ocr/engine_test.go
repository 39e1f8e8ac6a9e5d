package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	name   string
	args   []string
	stdout string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.name, f.args = name, args
	if f.err != nil {
		return nil, []byte("Error opening data file"), f.err
	}
	return []byte(f.stdout), nil, nil
}

func TestTesseractEngine_Recognize(t *testing.T) {
	r := &fakeRunner{stdout: "INVOICE 42"}
	eng := NewTesseractEngine(Config{Tesseract: "tesseract", TessdataDir: "/share/tessdata", PSM: 6}, r)
	eng.lookPath = func(string) (string, error) { return "/usr/bin/tesseract", nil }

	sess, err := eng.Start(context.Background(), "eng")
	require.NoError(t, err)

	txt, err := sess.Recognize(context.Background(), "/tmp/a.png")
	require.NoError(t, err)
	assert.Equal(t, "INVOICE 42", txt)
	assert.Equal(t, "/usr/bin/tesseract", r.name)
	assert.Equal(t, []string{"/tmp/a.png", "stdout", "-l", "eng", "--psm", "6", "--tessdata-dir", "/share/tessdata"}, r.args)

	require.NoError(t, sess.Close())
	assert.NoError(t, sess.Close())
	_, err = sess.Recognize(context.Background(), "/tmp/a.png")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestTesseractEngine_StartMissingBinary(t *testing.T) {
	eng := NewTesseractEngine(Config{Tesseract: "no-such-tesseract"}, &fakeRunner{})
	eng.lookPath = func(string) (string, error) { return "", errors.New("not found in $PATH") }

	_, err := eng.Start(context.Background(), "eng")
	assert.ErrorContains(t, err, "no-such-tesseract")
}

func TestTesseractEngine_RecognizeFailureCarriesStderr(t *testing.T) {
	r := &fakeRunner{err: errors.New("exit status 1")}
	eng := NewTesseractEngine(Config{}, r)
	eng.lookPath = func(s string) (string, error) { return s, nil }

	sess, err := eng.Start(context.Background(), "eng")
	require.NoError(t, err)
	defer sess.Close()

	_, err = sess.Recognize(context.Background(), "x.png")
	assert.ErrorContains(t, err, "Error opening data file")
}
