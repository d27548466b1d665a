// Package extract turns uploaded study material into plain text suitable for
// question synthesis. It handles PDF documents (native text plus OCR of
// embedded images), standalone raster images, and plain text files.
package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Enhancer prepares a raster image for OCR. Implementations return an
// encoded PNG of the enhanced image.
type Enhancer interface {
	Enhance(data []byte) ([]byte, error)
}

// Recognizer performs OCR on an encoded image and returns the recognized
// text.
type Recognizer interface {
	Recognize(image []byte) (string, error)
}

// Processor extracts text and images from uploaded files.
type Processor struct {
	enhancer   Enhancer
	recognizer Recognizer
}

// NewProcessor wires a Processor with explicit enhancement and OCR stages.
func NewProcessor(enhancer Enhancer, recognizer Recognizer) *Processor {
	return &Processor{enhancer: enhancer, recognizer: recognizer}
}

// New returns a Processor backed by the OpenCV enhancement pipeline and a
// Tesseract recognizer.
func New() *Processor {
	return NewProcessor(&OpenCVEnhancer{}, &TesseractRecognizer{})
}

// Process extracts content from data according to its declared MIME type.
// It never returns an error; any failure is folded into the Result so
// callers can persist and report it uniformly.
func (p *Processor) Process(ctx context.Context, data []byte, mimeType string) (res Result) {
	// The PDF parser panics on some malformed files instead of returning
	// an error, so the whole dispatch runs under a recover.
	defer func() {
		if r := recover(); r != nil {
			res = errorResult(fmt.Errorf("extraction failed: %v", r))
		}
	}()

	var (
		pages  []string
		images [][]byte
		err    error
	)
	switch {
	case mimeType == "application/pdf":
		pages, images, err = p.processPDF(ctx, data)
	case strings.HasPrefix(mimeType, "image/"):
		pages, images, err = p.processImage(data)
	case mimeType == "text/plain":
		pages, err = processText(data)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
	if err != nil {
		return errorResult(err)
	}
	return processedResult(pages, images)
}

func (p *Processor) processImage(data []byte) ([]string, [][]byte, error) {
	enhanced, err := p.enhancer.Enhance(data)
	if err != nil {
		return nil, nil, fmt.Errorf("enhance image: %w", err)
	}
	text, err := p.recognizer.Recognize(enhanced)
	if err != nil {
		return nil, nil, fmt.Errorf("recognize image: %w", err)
	}
	return []string{text}, [][]byte{enhanced}, nil
}

func processText(data []byte) ([]string, error) {
	if !utf8.Valid(data) {
		return nil, ErrTextDecode
	}
	return []string{string(data)}, nil
}

func joinPages(pages []string) string {
	return strings.Join(pages, "\n")
}
