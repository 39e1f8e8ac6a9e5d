package ocr

import (
	"context"
	"errors"

	"github.com/joseph-ayodele/docu-prompt-engine/constants"
	"github.com/joseph-ayodele/docu-prompt-engine/internal/common"
)

// extractImage holds one engine session for the duration of the call and
// closes it on every path.
func (e *Extractor) extractImage(ctx context.Context, path string) (res ExtractionResult, err error) {
	res = ExtractionResult{SourceType: constants.IMAGE, Method: "image-ocr", Language: e.cfg.Language}

	sess, err := e.engine.Start(ctx, e.cfg.Language)
	if err != nil {
		return res, common.OCREngineError("start engine", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			e.logger.Warn("ocr.session.close_failed", "path", path, "error", cerr)
			res.Warnings = append(res.Warnings, cerr.Error())
		}
	}()

	txt, err := sess.Recognize(ctx, path)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return res, ctx.Err()
		}
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return res, common.OCREngineError("recognize", err)
	}
	res.Text = Normalize(reBoxNoise.ReplaceAllString(txt, ""))
	res.Pages = 1
	return res, nil
}
