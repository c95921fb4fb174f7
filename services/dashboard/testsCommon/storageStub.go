package testsCommon

import (
	"context"

	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/common"
)

// StorageStub -
type StorageStub struct {
	SaveSelectionHandler     func(ctx context.Context, selection common.Selection) error
	LoadSelectionHandler     func(ctx context.Context) (common.Selection, bool, error)
	RecordRefreshHandler     func(ctx context.Context, record common.RefreshRecord) error
	GetRefreshHistoryHandler func(ctx context.Context, limit int) ([]common.RefreshRecord, error)
	CloseHandler             func() error
}

// SaveSelection -
func (stub *StorageStub) SaveSelection(ctx context.Context, selection common.Selection) error {
	if stub.SaveSelectionHandler != nil {
		return stub.SaveSelectionHandler(ctx, selection)
	}

	return nil
}

// LoadSelection -
func (stub *StorageStub) LoadSelection(ctx context.Context) (common.Selection, bool, error) {
	if stub.LoadSelectionHandler != nil {
		return stub.LoadSelectionHandler(ctx)
	}

	return common.Selection{}, false, nil
}

// RecordRefresh -
func (stub *StorageStub) RecordRefresh(ctx context.Context, record common.RefreshRecord) error {
	if stub.RecordRefreshHandler != nil {
		return stub.RecordRefreshHandler(ctx, record)
	}

	return nil
}

// GetRefreshHistory -
func (stub *StorageStub) GetRefreshHistory(ctx context.Context, limit int) ([]common.RefreshRecord, error) {
	if stub.GetRefreshHistoryHandler != nil {
		return stub.GetRefreshHistoryHandler(ctx, limit)
	}

	return make([]common.RefreshRecord, 0), nil
}

// Close -
func (stub *StorageStub) Close() error {
	if stub.CloseHandler != nil {
		return stub.CloseHandler()
	}

	return nil
}

// IsInterfaceNil -
func (stub *StorageStub) IsInterfaceNil() bool {
	return stub == nil
}
