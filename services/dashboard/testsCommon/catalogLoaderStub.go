package testsCommon

import (
	"context"

	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/common"
)

// CatalogLoaderStub -
type CatalogLoaderStub struct {
	LoadCatalogHandler func(ctx context.Context) (common.Catalog, error)
}

// LoadCatalog -
func (stub *CatalogLoaderStub) LoadCatalog(ctx context.Context) (common.Catalog, error) {
	if stub.LoadCatalogHandler != nil {
		return stub.LoadCatalogHandler(ctx)
	}

	return common.Catalog{}, nil
}

// IsInterfaceNil -
func (stub *CatalogLoaderStub) IsInterfaceNil() bool {
	return stub == nil
}
