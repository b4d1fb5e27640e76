package pdfsearch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// Extractor converts one PDF file on disk to text.
// On failure it returns whatever text it managed to produce together with an *ExtractionError.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// PdftotextExtractor shells out to poppler's pdftotext: `<bin> <path> -`.
// The path is passed as its own argv entry; no shell is involved.
type PdftotextExtractor struct {
	Bin     string
	Timeout time.Duration
}

// NewPdftotextExtractor returns an extractor for bin ("pdftotext" when empty).
func NewPdftotextExtractor(bin string, timeout time.Duration) *PdftotextExtractor {
	if strings.TrimSpace(bin) == "" {
		bin = "pdftotext"
	}
	return &PdftotextExtractor{Bin: bin, Timeout: timeout}
}

// Available probes PATH for the binary.
func (p *PdftotextExtractor) Available() error {
	if _, err := exec.LookPath(p.Bin); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMissingDependency, p.Bin, err)
	}
	return nil
}

// Extract runs the binary and returns its stdout as UTF-8 text.
func (p *PdftotextExtractor) Extract(ctx context.Context, path string) (string, error) {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, p.Bin, path, "-")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	text := cleanText(stdout.Bytes())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w (%v)", ctxErr, err)
		}
		return text, &ExtractionError{Path: path, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return text, nil
}

// LibExtractor extracts text in-process with github.com/ledongthuc/pdf.
// It handles simple PDFs only and serves as a best-effort fallback.
type LibExtractor struct{}

// Extract reads the plain text layer of the PDF at path.
func (LibExtractor) Extract(ctx context.Context, path string) (text string, err error) {
	if err := ctx.Err(); err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}
	// The parser panics on some malformed xref tables.
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = &ExtractionError{Path: path, Err: fmt.Errorf("pdf parser panic: %v", rec)}
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}
	raw, err := io.ReadAll(plain)
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}
	return cleanText(raw), nil
}

// FallbackExtractor tries Primary, then Secondary when Primary fails.
type FallbackExtractor struct {
	Primary   Extractor
	Secondary Extractor
}

// Extract returns the first successful result. If both fail, the primary's partial output and error win.
func (f FallbackExtractor) Extract(ctx context.Context, path string) (string, error) {
	text, err := f.Primary.Extract(ctx, path)
	if err == nil || f.Secondary == nil || ctx.Err() != nil {
		return text, err
	}
	alt, altErr := f.Secondary.Extract(ctx, path)
	if altErr == nil && strings.TrimSpace(alt) != "" {
		return alt, nil
	}
	return text, err
}

// cleanText decodes extractor output as UTF-8 and drops NUL bytes, which Postgres TEXT rejects.
func cleanText(raw []byte) string {
	s := strings.ToValidUTF8(string(raw), "�")
	return strings.ReplaceAll(s, "\x00", "")
}

// IsExtractionError reports whether err carries an *ExtractionError.
func IsExtractionError(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}
