//go:build !ocr

package ocr

// NewGosseract reports ErrOCRNotEnabled; build with -tags ocr to link
// libtesseract.
func NewGosseract() (Recognizer, error) {
	return nil, ErrOCRNotEnabled
}
