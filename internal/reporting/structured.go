package reporting

import (
	"fmt"
	"io"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONReporter streams each result as an indented JSON document.
type JSONReporter struct {
	mu      sync.Mutex
	writer  io.WriteCloser
	encoder *jsoniter.Encoder
}

func NewJSONReporter(writer io.WriteCloser) *JSONReporter {
	enc := json.NewEncoder(writer)
	enc.SetIndent("", "  ")
	return &JSONReporter{writer: writer, encoder: enc}
}

func (r *JSONReporter) Write(result *schemas.AnalysisResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode result as JSON: %w", err)
	}
	return nil
}

func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return closeAfter(r.writer, nil)
}

// YAMLReporter writes each result as a separate YAML document.
type YAMLReporter struct {
	mu      sync.Mutex
	writer  io.WriteCloser
	encoder *yaml.Encoder
}

func NewYAMLReporter(writer io.WriteCloser) *YAMLReporter {
	enc := yaml.NewEncoder(writer)
	enc.SetIndent(2)
	return &YAMLReporter{writer: writer, encoder: enc}
}

func (r *YAMLReporter) Write(result *schemas.AnalysisResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode result as YAML: %w", err)
	}
	return nil
}

func (r *YAMLReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return closeAfter(r.writer, r.encoder.Close())
}
