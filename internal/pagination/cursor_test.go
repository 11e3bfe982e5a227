package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 890, time.UTC)

	encoded := EncodeCursor("9b2f4a52-3c1e-4d7a-8f60-1d2e3c4b5a69", ts)
	decoded, err := DecodeCursor(encoded)

	require.NoError(t, err)
	assert.Equal(t, "9b2f4a52-3c1e-4d7a-8f60-1d2e3c4b5a69", decoded.LastID)
	assert.True(t, ts.Equal(decoded.Timestamp))
}

func TestDecodeCursor(t *testing.T) {
	c, err := DecodeCursor("")
	assert.NoError(t, err)
	assert.Nil(t, c)

	_, err = DecodeCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidCursor)

	_, err = DecodeCursor("bm9waXBl") // no separator
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestEncodeCursor_EmptyID(t *testing.T) {
	assert.Empty(t, EncodeCursor("", time.Now()))
}

func TestDecodeCursor_BadTimestamp(t *testing.T) {
	_, err := DecodeCursor("eHl6OmRvYy0x") // "xyz:doc-1"
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestEncodeCursor_URLSafe(t *testing.T) {
	token := EncodeCursor("doc/with+chars?", time.Now())
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")
	assert.NotContains(t, token, "=")
}
