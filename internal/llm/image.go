package llm

import (
	"github.com/gabriel-vasile/mimetype"

	"github.com/nikhilbhutani/promptlab/internal/apperrors"
)

// DetectImageFormat sniffs the image format from content. The declared
// content type of an upload is not trusted.
func DetectImageFormat(b []byte) (string, error) {
	if len(b) == 0 {
		return "", apperrors.New(apperrors.KindInvalidFormat, apperrors.KeyImageRequired)
	}
	mt := mimetype.Detect(b)
	format, ok := ImageFormats[mt.String()]
	if !ok {
		return "", apperrors.New(apperrors.KindInvalidFormat, apperrors.KeyInvalidImageFormat).
			WithDetail("detected %s", mt.String())
	}
	return format, nil
}
