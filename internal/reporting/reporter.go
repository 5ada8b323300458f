package reporting

import (
	"fmt"
	"io"
	"os"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
)

// Supported output formats.
const (
	FormatJSON      = "json"
	FormatYAML      = "yaml"
	FormatSARIF     = "sarif"
	FormatCycloneDX = "cyclonedx"
)

// Formats lists every format New accepts.
var Formats = []string{FormatJSON, FormatYAML, FormatSARIF, FormatCycloneDX}

// Reporter defines the interface for writing analysis results to an output.
type Reporter interface {
	// Write adds one analysis result to the report.
	Write(result *schemas.AnalysisResult) error
	// Close finalizes the report and closes any underlying resources (e.g., file handles).
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a new reporter based on the specified format and output path.
// An empty path or "stdout" writes to standard output.
func New(format, outputPath, toolVersion string) (Reporter, error) {
	if !Supported(format) {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		// Wrap Stdout so Close() is a no-op.
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}
	return NewWithWriter(format, writer, toolVersion)
}

// NewWithWriter creates a reporter that takes ownership of writer.
func NewWithWriter(format string, writer io.WriteCloser, toolVersion string) (Reporter, error) {
	switch format {
	case FormatJSON:
		return NewJSONReporter(writer), nil
	case FormatYAML:
		return NewYAMLReporter(writer), nil
	case FormatSARIF:
		return NewSARIFReporter(writer, toolVersion), nil
	case FormatCycloneDX:
		return NewCycloneDXReporter(writer, toolVersion), nil
	default:
		writer.Close()
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// Supported reports whether format is one of Formats.
func Supported(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// closeAfter closes w once encoding is done and reports the first failure.
func closeAfter(w io.Closer, encodeErr error) error {
	closeErr := w.Close()
	if encodeErr != nil {
		return fmt.Errorf("failed to encode report: %w", encodeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}
