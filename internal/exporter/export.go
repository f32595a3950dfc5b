package exporter

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"kpiboard/internal/infrastructure"
	"kpiboard/pkg/contracts/domain"
)

// Encode writes sheet in the given format
func Encode(w io.Writer, format Format, sheet Sheet) error {
	switch format {
	case FormatCSV:
		return EncodeCSV(w, sheet)
	case FormatXLSX:
		return EncodeXLSX(w, sheet)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// HistoryWriter records poll cycles to a file. CSV files grow by one block of
// rows per cycle; XLSX files hold only the latest cycle.
type HistoryWriter struct {
	mu      sync.Mutex
	path    string
	format  Format
	started bool
	logger  *slog.Logger
}

// NewHistoryWriter picks the format from the file extension
func NewHistoryWriter(path string, logger *slog.Logger) (*HistoryWriter, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	return &HistoryWriter{
		path:   path,
		format: format,
		logger: infrastructure.ForComponent(logger, "exporter", slog.String("path", path)),
	}, nil
}

// Path returns the file being written
func (h *HistoryWriter) Path() string {
	return h.path
}

// Record writes one cycle. The first CSV write truncates the file and writes
// the header only when the file did not exist or was empty.
func (h *HistoryWriter) Record(ext domain.Extraction, at time.Time) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	sheet := FromExtraction(ext, at)
	if h.format == FormatXLSX {
		return SaveXLSX(h.path, sheet)
	}

	opts := WriteOptions{Headers: sheet.Headers, Records: sheet.Records, BOMPrefix: true}
	if h.started || nonEmpty(h.path) {
		opts.Append = true
	}
	if err := WriteCSV(h.path, opts); err != nil {
		return err
	}
	h.started = true
	h.logger.Debug("Recorded poll cycle", slog.Int("rows", len(sheet.Records)))
	return nil
}

func nonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}
