package testsCommon

import (
	"context"
	"time"

	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/common"
)

// QueryClientStub -
type QueryClientStub struct {
	FetchCatalogHandler func(ctx context.Context, page int, pageSize int) (common.Catalog, error)
	QueryRawHandler     func(ctx context.Context, metric string, start time.Time, end time.Time) (*common.SeriesResult, error)
	QueryRollupHandler  func(ctx context.Context, metric string, start time.Time, end time.Time, window string) (*common.SeriesResult, error)
}

// FetchCatalog -
func (stub *QueryClientStub) FetchCatalog(ctx context.Context, page int, pageSize int) (common.Catalog, error) {
	if stub.FetchCatalogHandler != nil {
		return stub.FetchCatalogHandler(ctx, page, pageSize)
	}

	return common.Catalog{}, nil
}

// QueryRaw -
func (stub *QueryClientStub) QueryRaw(ctx context.Context, metric string, start time.Time, end time.Time) (*common.SeriesResult, error) {
	if stub.QueryRawHandler != nil {
		return stub.QueryRawHandler(ctx, metric, start, end)
	}

	return &common.SeriesResult{MetricName: metric, Rollup: common.RawRollup, Start: start, End: end}, nil
}

// QueryRollup -
func (stub *QueryClientStub) QueryRollup(ctx context.Context, metric string, start time.Time, end time.Time, window string) (*common.SeriesResult, error) {
	if stub.QueryRollupHandler != nil {
		return stub.QueryRollupHandler(ctx, metric, start, end, window)
	}

	return &common.SeriesResult{MetricName: metric, Rollup: window, Start: start, End: end}, nil
}

// IsInterfaceNil -
func (stub *QueryClientStub) IsInterfaceNil() bool {
	return stub == nil
}
