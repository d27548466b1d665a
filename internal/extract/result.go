package extract

// Status marks an extraction outcome. Process never returns a Go error to its
// caller; failures surface as a Result with StatusError and a message.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusError     Status = "error"
)

// Result is the standardized outcome of extracting a single uploaded file.
//
// For a processed result Text is always the page texts joined with a single
// newline, and Pages has one entry per source page (empty string for pages
// with no recoverable text). Images holds enhanced PNG renditions of any
// embedded or uploaded raster images, in page order.
type Result struct {
	Text   string   `json:"text"`
	Pages  []string `json:"pages"`
	Images [][]byte `json:"images,omitempty"`
	Status Status   `json:"status"`
	Error  string   `json:"error,omitempty"`
}

func errorResult(err error) Result {
	return Result{Status: StatusError, Error: err.Error()}
}

func processedResult(pages []string, images [][]byte) Result {
	return Result{
		Text:   joinPages(pages),
		Pages:  pages,
		Images: images,
		Status: StatusProcessed,
	}
}
