package storageadapter

import "encoding/base64"

// EncodeCursor and DecodeCursor are shared by every Adapter implementation
// so pagination cursors stay opaque to callers (spec.md §4.3): internally
// just the last key returned, base64-encoded so callers never come to
// depend on its shape. Keys sort lexicographically, so "resume after this
// key" is a correct pagination cursor regardless of how many shards back it.
func EncodeCursor(lastKey string) string {
	if lastKey == "" {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(lastKey))
}

// DecodeCursor inverts EncodeCursor.
func DecodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}
	b, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
