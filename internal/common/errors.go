package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrValidation   = errors.New("validation failed")
)

// Pipeline failure kinds. Each one is the root of the chain for errors of that kind.
var (
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrCorruptDocument   = errors.New("corrupt document")
	ErrOCREngine         = errors.New("ocr engine error")
	ErrAIInvocation      = errors.New("ai invocation failed")
	ErrAIResponseParse   = errors.New("ai response could not be parsed")
	ErrStorage           = errors.New("storage error")
	ErrCleanup           = errors.New("cleanup failed")
	ErrCancelled         = errors.New("cancelled before processing")
)

const (
	KindUnsupportedFormat    = "UnsupportedFormat"
	KindCorruptDocument      = "CorruptDocument"
	KindOCREngineError       = "OcrEngineError"
	KindAIInvocationError    = "AiInvocationError"
	KindAIResponseParseError = "AiResponseParseError"
	KindStorageError         = "StorageError"
	KindCleanupWarning       = "CleanupWarning"
	KindCancelled            = "Cancelled"
	KindInvalidInput         = "InvalidInput"
	KindInternal             = "Internal"
)

var kindSentinels = []struct {
	kind string
	err  error
}{
	{KindUnsupportedFormat, ErrUnsupportedFormat},
	{KindCorruptDocument, ErrCorruptDocument},
	{KindOCREngineError, ErrOCREngine},
	{KindAIInvocationError, ErrAIInvocation},
	{KindAIResponseParseError, ErrAIResponseParse},
	{KindStorageError, ErrStorage},
	{KindCleanupWarning, ErrCleanup},
	{KindCancelled, ErrCancelled},
	{KindInvalidInput, ErrInvalidInput},
	{KindInvalidInput, ErrValidation},
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// newKindError joins the kind sentinel with an optional underlying error.
func newKindError(kind string, sentinel error, message string, err error) *AppError {
	cause := sentinel
	if err != nil {
		cause = fmt.Errorf("%w: %w", sentinel, err)
	}
	return NewAppError(kind, message, cause)
}

func UnsupportedFormatError(ext string) error {
	return newKindError(KindUnsupportedFormat, ErrUnsupportedFormat, fmt.Sprintf("format %q is not supported", ext), nil)
}

func CorruptDocumentError(message string, err error) error {
	return newKindError(KindCorruptDocument, ErrCorruptDocument, message, err)
}

func OCREngineError(message string, err error) error {
	return newKindError(KindOCREngineError, ErrOCREngine, message, err)
}

func AIInvocationError(message string, err error) error {
	return newKindError(KindAIInvocationError, ErrAIInvocation, message, err)
}

func StorageError(message string, err error) error {
	return newKindError(KindStorageError, ErrStorage, message, err)
}

func CleanupWarning(path string, err error) error {
	return newKindError(KindCleanupWarning, ErrCleanup, fmt.Sprintf("remove %s", path), err)
}

// ParseError is returned when a model answered but its text is not a usable JSON object.
// Raw is the response exactly as received, before fence stripping.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s: %v", KindAIResponseParseError, ErrAIResponseParse.Error(), e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrAIResponseParse }

// DocumentError attaches the source file identity to a pipeline failure.
type DocumentError struct {
	FileName string
	Err      error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s: %v", e.FileName, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// KindOf returns the taxonomy kind of err, or KindInternal when none applies.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	for _, ks := range kindSentinels {
		if errors.Is(err, ks.err) {
			return ks.kind
		}
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	return KindInternal
}

// HTTPStatus maps an error kind to the response status used by the HTTP API.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUnsupportedFormat, KindInvalidInput:
		return http.StatusBadRequest
	case KindCorruptDocument:
		return http.StatusUnprocessableEntity
	case KindAIInvocationError, KindAIResponseParseError:
		return http.StatusBadGateway
	case KindCancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// GRPCError converts a pipeline error into a gRPC status error carrying its kind.
func GRPCError(err error) error {
	if err == nil {
		return nil
	}
	code := codes.Internal
	switch KindOf(err) {
	case KindUnsupportedFormat, KindInvalidInput:
		code = codes.InvalidArgument
	case KindCorruptDocument:
		code = codes.FailedPrecondition
	case KindAIInvocationError, KindAIResponseParseError:
		code = codes.Unavailable
	case KindCancelled:
		code = codes.Canceled
	}
	return status.Errorf(code, "%s: %v", KindOf(err), err)
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}
