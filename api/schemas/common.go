package schemas

import "errors"

// -- Common Errors --

// ErrInvalidDocument marks an input that is not a usable SBOM: it is not
// valid JSON or it does not declare a components field. It is fatal for the
// run and is never retried.
var ErrInvalidDocument = errors.New("invalid SBOM document")

// ErrDocumentTooLarge marks an input rejected before decoding because it
// exceeds the configured size ceiling.
var ErrDocumentTooLarge = errors.New("SBOM document exceeds size limit")

// DefaultMaxDocumentBytes is the upstream size ceiling for SBOM documents (10 MiB).
const DefaultMaxDocumentBytes int64 = 10 << 20

// ErrNotFound marks a missing blob object or audit record.
var ErrNotFound = errors.New("not found")
