package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-permissions/pkg/types"
	"github.com/google/uuid"
)

// PageListInput lists the pages of a system in display order.
type PageListInput struct {
	SystemID uuid.UUID
	Actor    types.ActorRef
}

// Type implements gocommand.Message.
func (PageListInput) Type() string {
	return "query.catalog.pages"
}

// Validate implements gocommand.Message.
func (input PageListInput) Validate() error {
	if input.SystemID == uuid.Nil {
		return errSystemIDRequired
	}
	return requireActor(input.Actor)
}

// PageListQuery lists catalog pages. Pages are global per system, so any
// authenticated actor may read them.
type PageListQuery struct {
	catalog types.Catalog
}

// NewPageListQuery builds the page list query.
func NewPageListQuery(catalog types.Catalog) *PageListQuery {
	return &PageListQuery{catalog: catalog}
}

var _ gocommand.Querier[PageListInput, []types.Page] = (*PageListQuery)(nil)

// Query forwards to the catalog.
func (q *PageListQuery) Query(ctx context.Context, input PageListInput) ([]types.Page, error) {
	if q.catalog == nil {
		return nil, types.ErrMissingCatalog
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if _, err := q.catalog.GetSystem(ctx, input.SystemID); err != nil {
		return nil, err
	}
	return q.catalog.ListPages(ctx, input.SystemID)
}
