package analysis

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/sbomrisk/api/schemas"
)

var (
	json     = jsoniter.ConfigCompatibleWithStandardLibrary
	validate = validator.New(validator.WithRequiredStructEnabled())
)

// wireDocument is the decode target. Components is a pointer so that an
// absent field can be told apart from an empty array.
type wireDocument struct {
	BOMFormat    string                   `json:"bomFormat"`
	SpecVersion  string                   `json:"specVersion"`
	Components   *[]schemas.Component     `json:"components" validate:"required"`
	Dependencies []schemas.DependencyEdge `json:"dependencies"`
}

// Decode reads a JSON SBOM of at most limit bytes. A non-positive limit uses
// schemas.DefaultMaxDocumentBytes. Oversized input fails with
// schemas.ErrDocumentTooLarge before any parsing; malformed input, or a
// document without a components field, fails with schemas.ErrInvalidDocument.
func Decode(r io.Reader, limit int64) (*schemas.Document, error) {
	if limit <= 0 {
		limit = schemas.DefaultMaxDocumentBytes
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", schemas.ErrDocumentTooLarge, limit)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty document", schemas.ErrInvalidDocument)
	}

	var wire wireDocument
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", schemas.ErrInvalidDocument, err)
	}
	if err := validate.Struct(&wire); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, fmt.Errorf("%w: missing required field %q", schemas.ErrInvalidDocument, "components")
		}
		return nil, fmt.Errorf("%w: %v", schemas.ErrInvalidDocument, err)
	}

	doc := &schemas.Document{
		BOMFormat:    wire.BOMFormat,
		SpecVersion:  wire.SpecVersion,
		Components:   *wire.Components,
		Dependencies: wire.Dependencies,
	}
	if doc.Components == nil {
		doc.Components = []schemas.Component{}
	}
	MergeDependencies(doc)
	return doc, nil
}

// MergeDependencies folds the document level dependency list into each
// component's declared dependencies. An edge's ref matches a component by
// package-url or bom-ref, first component wins; unmatched edges are dropped
// and references already declared are not repeated.
func MergeDependencies(doc *schemas.Document) {
	if doc == nil || len(doc.Dependencies) == 0 {
		return
	}

	owner := make(map[string]int, len(doc.Components)*2)
	for i, c := range doc.Components {
		for _, ref := range []string{c.PackageURL, c.BOMRef} {
			if ref == "" {
				continue
			}
			if _, taken := owner[ref]; !taken {
				owner[ref] = i
			}
		}
	}

	for _, edge := range doc.Dependencies {
		i, ok := owner[edge.Ref]
		if !ok {
			continue
		}
		c := &doc.Components[i]
		declared := make(map[string]bool, len(c.Dependencies))
		for _, d := range c.Dependencies {
			declared[d.Ref] = true
		}
		for _, target := range edge.DependsOn {
			if target == "" || declared[target] {
				continue
			}
			declared[target] = true
			c.Dependencies = append(c.Dependencies, schemas.DependencyRef{Ref: target})
		}
	}
}
