package memservice

import (
	"fmt"

	"github.com/starford/mimir/internal/apperr"
)

func itemNotFound(listID string, itemID int) error {
	return fmt.Errorf("memservice: item %d in list %s: %w", itemID, listID, apperr.ErrNotFound)
}
