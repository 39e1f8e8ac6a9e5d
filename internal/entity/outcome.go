package entity

import "github.com/joseph-ayodele/docu-prompt-engine/constants"

// Outcome is the result of one file in a batch, at the same index as its input.
type Outcome struct {
	Index    int                     `json:"index"`
	FileName string                  `json:"fileName"`
	Status   constants.OutcomeStatus `json:"status"`
	Document *Document               `json:"document,omitempty"`
	Err      error                   `json:"-"`
}

// OK reports whether the file was processed and persisted.
func (o Outcome) OK() bool { return o.Status == constants.OutcomeSuccess }
