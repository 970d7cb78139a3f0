package document

import "errors"

var (
	ErrNotFound              = errors.New("document not found")
	ErrInvalidDocument       = errors.New("invalid document")
	ErrInvalidPageIndex      = errors.New("invalid page index")
	ErrInvalidSignatureImage = errors.New("invalid signature image")
	ErrInvalidPlacement      = errors.New("invalid placement")
)
