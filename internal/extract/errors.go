package extract

import "errors"

var (
	errEmptyFile        = errors.New("file is empty")
	errNoText           = errors.New("no extractable text")
	errMissingDocument  = errors.New("word/document.xml not found")
	errMalformedPDFPage = errors.New("malformed pdf page")
)
