package api

import (
	"context"
	"io"

	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/common"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/render"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/view"
)

// Controller defines the query-and-render controller operations exposed over HTTP
type Controller interface {
	// Dispatch enqueues a refresh and returns the token of the issued request (0 for a no-op)
	Dispatch(cmd common.RefreshRequested) uint64

	// RefreshAndWait dispatches a refresh and waits for it to settle
	RefreshAndWait(ctx context.Context, cmd common.RefreshRequested) (view.Snapshot, error)

	// LoadCatalog reloads the selectable metric set
	LoadCatalog(ctx context.Context) error

	// Snapshot returns the current view state
	Snapshot() view.Snapshot

	IsInterfaceNil() bool
}

// HistoryProvider defines the source of the refresh history
type HistoryProvider interface {
	GetRefreshHistory(ctx context.Context, limit int) ([]common.RefreshRecord, error)
	IsInterfaceNil() bool
}

// ChartRenderer defines the component able to draw the chart surface as an image
type ChartRenderer interface {
	Render(w io.Writer, data render.ChartData, format render.Format) error
	IsInterfaceNil() bool
}
