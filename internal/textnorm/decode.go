package textnorm

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/cloo-solutions/docrag/internal/domain"
)

// maxControlRatio is the share of C0 control bytes above which input is treated as binary.
const maxControlRatio = 0.1

// Decode turns raw bytes into a UTF-8 string. A UTF-8 or UTF-16 byte order mark selects the
// decoder; BOM-less input that is not valid UTF-8 is read as Windows-1256, the legacy Arabic
// code page. Binary input fails with an UnsupportedEncodingError.
func Decode(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}

	decoded, _, err := transform.Bytes(unicode.BOMOverride(transform.Nop), raw)
	if err != nil {
		return "", domain.NewUnsupportedEncodingError(err.Error())
	}

	if looksBinary(decoded) {
		return "", domain.NewUnsupportedEncodingError("input looks like binary data")
	}

	if utf8.Valid(decoded) {
		return string(decoded), nil
	}

	legacy, err := charmap.Windows1256.NewDecoder().Bytes(decoded)
	if err != nil {
		return "", domain.NewUnsupportedEncodingError(err.Error())
	}
	return string(legacy), nil
}

func looksBinary(b []byte) bool {
	if bytes.IndexByte(b, 0) >= 0 {
		return true
	}
	control := 0
	for _, c := range b {
		if c < 0x20 && c != '\n' && c != '\r' && c != '\t' && c != '\f' {
			control++
		}
	}
	return float64(control)/float64(len(b)) > maxControlRatio
}
