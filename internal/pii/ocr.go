// OCR binding for the PII engine facade. The OCR engine itself is an
// external collaborator per the specification ("out of scope... the OCR
// engine"); OCREngine is the interface the facade consumes, and
// TesseractOCR is the production binding via otiai10/gosseract.
package pii

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/otiai10/gosseract/v2"
)

// OCREngine recognizes text from an image file.
type OCREngine interface {
	Recognize(ctx context.Context, path string) (string, error)
}

// TesseractOCR wraps otiai10/gosseract, bounding concurrent recognitions
// with a weighted semaphore sized by ocr_concurrency — the shared-resource
// policy in §5 applies across jobs/workers even though processing within
// a single job is strictly sequential.
type TesseractOCR struct {
	sem *semaphore.Weighted
}

// NewTesseractOCR builds a TesseractOCR allowing at most concurrency
// simultaneous recognitions (minimum of 1).
func NewTesseractOCR(concurrency int) *TesseractOCR {
	if concurrency < 1 {
		concurrency = 1
	}
	return &TesseractOCR{sem: semaphore.NewWeighted(int64(concurrency))}
}

func (t *TesseractOCR) Recognize(ctx context.Context, path string) (string, error) {
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer t.sem.Release(1)

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetImage(path); err != nil {
		return "", err
	}
	return client.Text()
}
