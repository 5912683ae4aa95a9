// Package filetype validates uploads by magic bytes, not filename. The tools
// only accept real PDFs; a renamed .docx must be rejected before it reaches a
// slicer or stamper.
package filetype

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Detector checks uploaded files using magic bytes.
type Detector struct{}

// New creates a new file type detector.
func New() *Detector {
	return &Detector{}
}

// IsPDF reports whether the file at path is an actual PDF.
func (d *Detector) IsPDF(path string) (bool, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to detect file type: %w", err)
	}
	log.Debug().Str("mime", mtype.String()).Str("file", path).Msg("detected file type")
	return mtype.Is("application/pdf"), nil
}
