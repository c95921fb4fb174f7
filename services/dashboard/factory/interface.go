package factory

import (
	"context"

	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/api"
)

// Server defines the operation of an entity able to serve requests
type Server interface {
	Start()
	Address() string
	Close() error
	IsInterfaceNil() bool
}

// Controller defines the controller operations driven by the components handler
type Controller interface {
	api.Controller
	Start()
	Close() error
}

// Storage defines the persistence component owned by the components handler
type Storage interface {
	api.HistoryProvider
	Close() error
}

type catalogReloader interface {
	LoadCatalog(ctx context.Context) error
}
