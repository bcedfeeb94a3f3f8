package store

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// backendCursor is the opaque pagination token a store hands back: the
// last-seen sort key and id, so a subsequent Query can resume after it
// without re-scanning. The entry engine wraps this with its own
// includeDeleted flag before handing a cursor to callers.
type backendCursor struct {
	lastSortKey string
	lastID      string
}

func encodeBackendCursor(c backendCursor) string {
	raw := c.lastSortKey + "\x1f" + c.lastID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeBackendCursor(s string) (backendCursor, error) {
	if s == "" {
		return backendCursor{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return backendCursor{}, fmt.Errorf("store: decode cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), "\x1f", 2)
	if len(parts) != 2 {
		return backendCursor{}, fmt.Errorf("store: malformed cursor")
	}
	return backendCursor{lastSortKey: parts[0], lastID: parts[1]}, nil
}
