package controller

import (
	"context"
	"time"

	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/common"
)

// QueryClient defines the component able to fetch a series from the query service
type QueryClient interface {
	QueryRaw(ctx context.Context, metric string, start time.Time, end time.Time) (*common.SeriesResult, error)
	QueryRollup(ctx context.Context, metric string, start time.Time, end time.Time, window string) (*common.SeriesResult, error)
	IsInterfaceNil() bool
}

// CatalogLoader defines the component able to produce the selectable metric set
type CatalogLoader interface {
	// LoadCatalog returns a catalog with at least one metric, or an error describing why none is selectable
	LoadCatalog(ctx context.Context) (common.Catalog, error)
	IsInterfaceNil() bool
}

// Storage defines the persistence used by the controller
type Storage interface {
	SaveSelection(ctx context.Context, selection common.Selection) error
	LoadSelection(ctx context.Context) (common.Selection, bool, error)
	RecordRefresh(ctx context.Context, record common.RefreshRecord) error
	IsInterfaceNil() bool
}
