package entity

import (
	"path/filepath"

	"github.com/joseph-ayodele/docu-prompt-engine/constants"
)

// SourceFile is an uploaded file awaiting processing. Path points at the
// temporary copy owned by the pipeline; OriginalName is what the client sent.
type SourceFile struct {
	Path         string `json:"path"`
	OriginalName string `json:"originalName"`
}

// Ext returns the normalized extension of the original name, or of Path when
// the original name carries none.
func (s SourceFile) Ext() string {
	if ext := constants.NormalizeExt(filepath.Ext(s.OriginalName)); ext != "" {
		return ext
	}
	return constants.NormalizeExt(filepath.Ext(s.Path))
}
