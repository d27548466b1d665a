package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/errgroup"
)

// pdfImageBase is the temp file stem for embedded image extraction. Keeping
// it fixed makes the page number position in output filenames predictable.
const pdfImageBase = "doc"

func (p *Processor) processPDF(ctx context.Context, data []byte) ([]string, [][]byte, error) {
	pages, err := pdfPageTexts(data)
	if err != nil {
		return nil, nil, err
	}

	raw, owners, err := pdfEmbeddedImages(data)
	if err != nil {
		return nil, nil, err
	}

	images, err := p.enhanceAll(ctx, raw)
	if err != nil {
		return nil, nil, err
	}

	// OCR text from an embedded image belongs to the page that carries the
	// image, so the page count never changes. A failed recognition loses that
	// image's text, not the document.
	for i, img := range images {
		text, err := p.recognizer.Recognize(img)
		if err != nil {
			slog.Warn("embedded image recognition failed", "page", owners[i], "error", err)
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		idx := owners[i] - 1
		if idx < 0 || idx >= len(pages) {
			continue
		}
		if pages[idx] == "" {
			pages[idx] = text
		} else {
			pages[idx] += "\n" + text
		}
	}
	return pages, images, nil
}

// pdfPageTexts extracts native text per page. Pages without extractable
// text yield an empty string so page counts stay stable.
func pdfPageTexts(data []byte) ([]string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			text = ""
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// pdfEmbeddedImages pulls embedded raster images out of the document via a
// scratch directory. Returned in page order, alongside the page number each
// image came from.
func pdfEmbeddedImages(data []byte) ([][]byte, []int, error) {
	tempDir, err := os.MkdirTemp("", "eduquest-pdf-")
	if err != nil {
		return nil, nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	inFile := filepath.Join(tempDir, pdfImageBase+".pdf")
	if err := os.WriteFile(inFile, data, 0o600); err != nil {
		return nil, nil, fmt.Errorf("write scratch pdf: %w", err)
	}
	outDir := filepath.Join(tempDir, "images")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create image dir: %w", err)
	}

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractImagesFile(inFile, outDir, nil, conf); err != nil {
		return nil, nil, fmt.Errorf("extract embedded images: %w", err)
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, nil, fmt.Errorf("list extracted images: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool {
		pi, pj := imagePageNumber(names[i]), imagePageNumber(names[j])
		if pi != pj {
			return pi < pj
		}
		return names[i] < names[j]
	})

	images := make([][]byte, 0, len(names))
	owners := make([]int, 0, len(names))
	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			return nil, nil, fmt.Errorf("read extracted image: %w", err)
		}
		images = append(images, b)
		owners = append(owners, imagePageNumber(name))
	}
	return images, owners, nil
}

// imagePageNumber parses the page number out of an extracted image filename
// of the form "<base>_<page>_<resource>.<ext>".
func imagePageNumber(name string) int {
	rest, ok := strings.CutPrefix(name, pdfImageBase+"_")
	if !ok {
		return 0
	}
	numStr, _, ok := strings.Cut(rest, "_")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(numStr)
	if err != nil {
		return 0
	}
	return n
}

// enhanceAll runs the enhancement pipeline over raw images concurrently,
// preserving input order.
func (p *Processor) enhanceAll(ctx context.Context, raw [][]byte) ([][]byte, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	enhanced := make([][]byte, len(raw))
	g, _ := errgroup.WithContext(ctx)
	for i, img := range raw {
		g.Go(func() error {
			out, err := p.enhancer.Enhance(img)
			if err != nil {
				return fmt.Errorf("enhance embedded image %d: %w", i, err)
			}
			enhanced[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return enhanced, nil
}
