package extract

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// OpenCVEnhancer prepares scanned images for OCR: grayscale decode,
// non-local-means denoising, CLAHE contrast boost, percentile intensity
// rescaling, and histogram equalization. Output is PNG-encoded.
type OpenCVEnhancer struct{}

// Enhance runs the full preprocessing pipeline on an encoded image.
func (e *OpenCVEnhancer) Enhance(data []byte) ([]byte, error) {
	src, err := gocv.IMDecode(data, gocv.IMReadGrayScale)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	defer src.Close()
	if src.Empty() {
		return nil, ErrImageDecode
	}

	denoised := gocv.NewMat()
	defer denoised.Close()
	gocv.FastNlMeansDenoisingWithParams(src, &denoised, 30, 7, 21)

	clahe := gocv.NewCLAHEWithParams(2.0, image.Pt(8, 8))
	defer clahe.Close()
	contrast := gocv.NewMat()
	defer contrast.Close()
	clahe.Apply(denoised, &contrast)

	rescaled, err := rescaleIntensity(contrast, 2, 98)
	if err != nil {
		return nil, err
	}
	defer rescaled.Close()

	equalized := gocv.NewMat()
	defer equalized.Close()
	gocv.EqualizeHist(rescaled, &equalized)

	buf, err := gocv.IMEncode(gocv.PNGFileExt, equalized)
	if err != nil {
		return nil, fmt.Errorf("encode enhanced image: %w", err)
	}
	defer buf.Close()
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// rescaleIntensity stretches the grayscale range so that the lowPct and
// highPct percentiles of the input map to 0 and 255.
func rescaleIntensity(m gocv.Mat, lowPct, highPct float64) (gocv.Mat, error) {
	pixels, err := m.DataPtrUint8()
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("read pixel data: %w", err)
	}

	var hist [256]int
	for _, v := range pixels {
		hist[v]++
	}
	total := len(pixels)
	low := percentileValue(hist[:], total, lowPct)
	high := percentileValue(hist[:], total, highPct)
	if high <= low {
		// Flat image, nothing to stretch.
		return m.Clone(), nil
	}

	alpha := 255.0 / float64(high-low)
	beta := -float64(low) * alpha
	dst := gocv.NewMat()
	m.ConvertToWithParams(&dst, gocv.MatTypeCV8UC1, float32(alpha), float32(beta))
	return dst, nil
}

func percentileValue(hist []int, total int, pct float64) int {
	if total == 0 {
		return 0
	}
	threshold := int(float64(total) * pct / 100.0)
	seen := 0
	for v, count := range hist {
		seen += count
		if seen > threshold {
			return v
		}
	}
	return len(hist) - 1
}
