package catalog

import (
	"context"

	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/common"
)

// CatalogFetcher defines the component able to read the metric catalog from the query service
type CatalogFetcher interface {
	FetchCatalog(ctx context.Context, page int, pageSize int) (common.Catalog, error)
	IsInterfaceNil() bool
}
