package parser

import "errors"

// Sentinel errors shared by all parsers. Callers match them with
// errors.Is; coded errors wrap them at the engine boundary.
var (
	// ErrUnsupportedFormat means no parser handles the input format.
	ErrUnsupportedFormat = errors.New("parser: unsupported format")

	// ErrInvalidCSV means the CSV input could not be read.
	ErrInvalidCSV = errors.New("parser: invalid CSV format")

	// ErrInvalidXES means the XES document is malformed.
	ErrInvalidXES = errors.New("parser: invalid XES format")

	// ErrMissingColumn means a configured column is absent from the header.
	ErrMissingColumn = errors.New("parser: required column missing")

	// ErrContextCanceled means parsing stopped because the context ended.
	ErrContextCanceled = errors.New("parser: context canceled")
)
