package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
		http int
		grpc codes.Code
	}{
		{"unsupported", UnsupportedFormatError("gif"), KindUnsupportedFormat, http.StatusBadRequest, codes.InvalidArgument},
		{"corrupt", CorruptDocumentError("parse", errors.New("xref")), KindCorruptDocument, http.StatusUnprocessableEntity, codes.FailedPrecondition},
		{"ocr", OCREngineError("start", nil), KindOCREngineError, http.StatusInternalServerError, codes.Internal},
		{"ai call", AIInvocationError("generate", errors.New("503")), KindAIInvocationError, http.StatusBadGateway, codes.Unavailable},
		{"ai parse", &ParseError{Raw: "nope", Err: errors.New("bad json")}, KindAIResponseParseError, http.StatusBadGateway, codes.Unavailable},
		{"storage", StorageError("save", errors.New("disk")), KindStorageError, http.StatusInternalServerError, codes.Internal},
		{"cancelled", context.Canceled, KindCancelled, http.StatusRequestTimeout, codes.Canceled},
		{"validation", NewValidator().Field("x", "", Required).Err(), KindInvalidInput, http.StatusBadRequest, codes.InvalidArgument},
		{"plain", errors.New("boom"), KindInternal, http.StatusInternalServerError, codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := &DocumentError{FileName: "a.pdf", Err: fmt.Errorf("step: %w", tt.err)}
			assert.Equal(t, tt.want, KindOf(wrapped))
			assert.Equal(t, tt.http, HTTPStatus(wrapped))

			st := status.Convert(GRPCError(wrapped))
			assert.Equal(t, tt.grpc, st.Code())
			assert.Contains(t, st.Message(), tt.want)
		})
	}
	assert.Equal(t, "", KindOf(nil))
	assert.NoError(t, GRPCError(nil))
}

func TestErrorsKeepTheirChain(t *testing.T) {
	cause := errors.New("tesseract: exit status 1")
	err := &DocumentError{FileName: "scan.png", Err: OCREngineError("recognize", cause)}

	assert.ErrorIs(t, err, ErrOCREngine)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "scan.png")
	assert.Contains(t, err.Error(), "tesseract: exit status 1")

	var appErr *AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, KindOCREngineError, appErr.Code)
}

func TestParseErrorCarriesRaw(t *testing.T) {
	raw := "```json\n{not json}\n```"
	var err error = &ParseError{Raw: raw, Err: errors.New("invalid character")}

	assert.ErrorIs(t, err, ErrAIResponseParse)
	var pe *ParseError
	assert.ErrorAs(t, fmt.Errorf("wrap: %w", err), &pe)
	assert.Equal(t, raw, pe.Raw)
}
