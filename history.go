package shield

import (
	"context"
	"fmt"

	"github.com/veilproto/shield/commitment"
	"github.com/veilproto/shield/store"
	"github.com/veilproto/shield/transaction"
)

// DefaultPageLimit is used when a page requests no explicit limit.
const DefaultPageLimit = 20

// History pages through a tenant's transaction records, newest first.
// Page numbers are one-based.
type History struct{}

// NewHistory creates a History service.
func NewHistory() *History {
	return &History{}
}

// Validate rejects non-positive page numbers and limits.
func (h *History) Validate(page transaction.Page) error {
	if page.PageNo < 1 {
		return fmt.Errorf("%w: page number %d", ErrInvalidPagination, page.PageNo)
	}
	if page.Limit < 1 {
		return fmt.Errorf("%w: limit %d", ErrInvalidPagination, page.Limit)
	}
	return nil
}

// List returns one page of records for the given ledger alongside the
// total number of records. Records are ordered by creation time
// descending, so page 1 holds the most recent activity.
func (h *History) List(ctx context.Context, st store.Store, kind commitment.Kind, page transaction.Page) ([]*transaction.Record, int64, error) {
	if !kind.Valid() {
		return nil, 0, fmt.Errorf("%w: kind %q", ErrInvalidInput, kind)
	}
	if err := h.Validate(page); err != nil {
		return nil, 0, err
	}

	opts := transaction.ListOpts{
		Limit:  page.Limit,
		Offset: (page.PageNo - 1) * page.Limit,
	}
	return st.ListRecords(ctx, kind, opts)
}
