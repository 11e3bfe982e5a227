// Package pagination encodes keyset cursors for newest-first listings.
package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidCursor = errors.New("invalid cursor format")

// Cursor is the position after the last listed row: rows sort by created_at then id.
type Cursor struct {
	LastID    string
	Timestamp time.Time
}

// EncodeCursor returns an opaque, URL-safe token for the row (lastID, timestamp).
func EncodeCursor(lastID string, timestamp time.Time) string {
	if lastID == "" {
		return ""
	}
	raw := strconv.FormatInt(timestamp.UnixNano(), 10) + ":" + lastID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor reverses EncodeCursor. An empty token decodes to a nil cursor.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	nanos, id, ok := strings.Cut(string(raw), ":")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}
	n, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	return &Cursor{LastID: id, Timestamp: time.Unix(0, n).UTC()}, nil
}
