package testsCommon

import (
	"context"

	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/common"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/view"
)

// ControllerStub -
type ControllerStub struct {
	DispatchHandler       func(cmd common.RefreshRequested) uint64
	RefreshAndWaitHandler func(ctx context.Context, cmd common.RefreshRequested) (view.Snapshot, error)
	LoadCatalogHandler    func(ctx context.Context) error
	SnapshotHandler       func() view.Snapshot
}

// Dispatch -
func (stub *ControllerStub) Dispatch(cmd common.RefreshRequested) uint64 {
	if stub.DispatchHandler != nil {
		return stub.DispatchHandler(cmd)
	}

	return 0
}

// RefreshAndWait -
func (stub *ControllerStub) RefreshAndWait(ctx context.Context, cmd common.RefreshRequested) (view.Snapshot, error) {
	if stub.RefreshAndWaitHandler != nil {
		return stub.RefreshAndWaitHandler(ctx, cmd)
	}

	return stub.Snapshot(), nil
}

// LoadCatalog -
func (stub *ControllerStub) LoadCatalog(ctx context.Context) error {
	if stub.LoadCatalogHandler != nil {
		return stub.LoadCatalogHandler(ctx)
	}

	return nil
}

// Snapshot -
func (stub *ControllerStub) Snapshot() view.Snapshot {
	if stub.SnapshotHandler != nil {
		return stub.SnapshotHandler()
	}

	return view.NewState(nil).Snapshot()
}

// IsInterfaceNil -
func (stub *ControllerStub) IsInterfaceNil() bool {
	return stub == nil
}
