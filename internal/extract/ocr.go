package extract

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// TesseractRecognizer runs OCR through a local Tesseract installation,
// tuned for uniform blocks of mixed English and math text.
type TesseractRecognizer struct{}

// Recognize extracts text from an encoded image. A fresh client is created
// per call; Tesseract clients are not safe for concurrent use.
func (r *TesseractRecognizer) Recognize(image []byte) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage("eng", "equ"); err != nil {
		return "", fmt.Errorf("set ocr language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", fmt.Errorf("set page segmentation: %w", err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("load ocr image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
