package domain

import "errors"

// Setup-time errors propagate to the caller of build/load operations.
// Per-turn errors are contained at the pipeline boundary and only
// surface through Reply causes.
var (
	ErrDirectoryNotFound = errors.New("directory not found")
	ErrNoDocumentsFound  = errors.New("no supported documents found")
	ErrStoreNotFound     = errors.New("knowledge store not found")
	ErrModelUnavailable  = errors.New("language model unavailable")
	ErrGenerationFailed  = errors.New("generation failed")
	ErrCompositionFailed = errors.New("plan composition failed")
)
