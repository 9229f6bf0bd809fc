package order

import (
	"strings"

	"github.com/orderdesk/backend/internal/domain/shared"
)

// NormalizeIdentifier canonicalizes a human-entered order identifier for
// matching purposes. Surrounding whitespace and at most one leading "#" are
// stripped; the remainder is compared case-sensitively. Every store lookup
// and insert must go through this function - raw identifiers are never used
// as keys.
func NormalizeIdentifier(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	id = strings.TrimPrefix(id, "#")
	id = strings.TrimSpace(id)
	if id == "" {
		return "", shared.ErrInvalidIdentifier
	}
	return id, nil
}
