package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/joseph-ayodele/docu-prompt-engine/constants"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/common"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/entity"
)

// ErrorView is the wire form of a failure: its kind, message and file.
type ErrorView struct {
	Message  string `json:"message"`
	Kind     string `json:"kind"`
	FileName string `json:"fileName,omitempty"`
}

// OutcomeView is the wire form of one batch entry.
type OutcomeView struct {
	Index    int                     `json:"index"`
	FileName string                  `json:"fileName"`
	Status   constants.OutcomeStatus `json:"status"`
	Document *entity.Document        `json:"document,omitempty"`
	Error    *ErrorView              `json:"error,omitempty"`
}

func NewErrorView(err error) *ErrorView {
	e := &ErrorView{Kind: common.KindOf(err), Message: err.Error()}
	var appErr *common.AppError
	if e.Kind == common.KindInvalidInput && errors.As(err, &appErr) {
		e.Message = appErr.Message
	}
	var docErr *common.DocumentError
	if errors.As(err, &docErr) {
		e.FileName = docErr.FileName
	}
	return e
}

func NewOutcomeView(o entity.Outcome) OutcomeView {
	out := OutcomeView{Index: o.Index, FileName: o.FileName, Status: o.Status, Document: o.Document}
	if o.Err != nil {
		out.Error = NewErrorView(o.Err)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, common.HTTPStatus(err), NewErrorView(err))
}
