package factory

import (
	"context"
	"sync"
	"time"

	"github.com/iulianpascalau/metrics-dashboard/commonGo"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/api"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/catalog"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/client"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/config"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/controller"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/render"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/storage"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/view"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("factory")

type componentsHandler struct {
	store                  Storage
	controller             Controller
	server                 Server
	mutCancel              sync.Mutex
	cancel                 func()
	catalogRefreshInterval time.Duration
}

// NewComponentsHandler creates a new components handler
func NewComponentsHandler(
	sqlitePath string,
	authUsername string,
	authPassword string,
	cfg config.Config,
) (*componentsHandler, error) {
	loc, err := time.LoadLocation(cfg.DisplayTimezone)
	if err != nil {
		return nil, err
	}

	queryClient, err := client.NewHTTPQueryClient(cfg.QueryServiceURL, cfg.QueryTimeout())
	if err != nil {
		return nil, err
	}

	loader, err := catalog.NewLoader(catalog.ArgsLoader{
		Fetcher:   queryClient,
		PageSize:  cfg.CatalogPageSize,
		AllowList: cfg.MetricAllowList,
	})
	if err != nil {
		return nil, err
	}

	renderer, err := render.NewChartRenderer(cfg.Chart.Width, cfg.Chart.Height)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(sqlitePath, cfg.HistoryRetentionSeconds)
	if err != nil {
		return nil, err
	}

	ctrl, err := controller.NewController(controller.ArgsController{
		Client:               queryClient,
		Loader:               loader,
		Storage:              store,
		State:                view.NewState(loc),
		DefaultRollup:        cfg.DefaultRollup,
		DefaultTimeRange:     cfg.DefaultTimeRange,
		QueryTimeout:         cfg.QueryTimeout(),
		SuccessStatusDisplay: cfg.SuccessStatusDisplay(),
		Location:             loc,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	server, err := api.NewServer(api.ArgsWebServer{
		ListenAddress:        cfg.ListenAddress,
		AuthUsername:         authUsername,
		AuthPassword:         authPassword,
		Controller:           ctrl,
		History:              store,
		Renderer:             renderer,
		RollupWindows:        cfg.RollupWindows,
		TimeRanges:           cfg.TimeRanges,
		RefreshWaitTimeout:   cfg.RefreshWaitTimeout(),
		SuccessStatusDisplay: cfg.SuccessStatusDisplay(),
		GeneralHandler:       api.CORSMiddleware,
	})
	if err != nil {
		_ = ctrl.Close()
		_ = store.Close()
		return nil, err
	}

	return &componentsHandler{
		store:                  store,
		controller:             ctrl,
		server:                 server,
		catalogRefreshInterval: cfg.CatalogRefreshInterval(),
	}, nil
}

// GetStore returns the storage component
func (ch *componentsHandler) GetStore() Storage {
	return ch.store
}

// GetController returns the query-and-render controller
func (ch *componentsHandler) GetController() Controller {
	return ch.controller
}

// GetServer returns the server component
func (ch *componentsHandler) GetServer() Server {
	return ch.server
}

// Start starts the controller loop, the web server and the catalog loading
func (ch *componentsHandler) Start() {
	ch.mutCancel.Lock()
	defer ch.mutCancel.Unlock()

	if ch.cancel != nil {
		return
	}

	var ctx context.Context
	ctx, ch.cancel = context.WithCancel(context.Background())

	ch.controller.Start()
	ch.server.Start()

	handler := catalogJob(ch.controller)
	if ch.catalogRefreshInterval > 0 {
		commonGo.CronJobStarter(ctx, handler, ch.catalogRefreshInterval)
		return
	}

	go handler(ctx)
}

func catalogJob(reloader catalogReloader) func(ctx context.Context) {
	return func(ctx context.Context) {
		err := reloader.LoadCatalog(ctx)
		if err != nil {
			log.Warn("catalog load failed", "error", err)
		}
	}
}

// Close closes the inner components
func (ch *componentsHandler) Close() {
	ch.mutCancel.Lock()
	defer ch.mutCancel.Unlock()

	if ch.cancel != nil {
		ch.cancel()
		ch.cancel = nil
	}

	err := ch.server.Close()
	if err != nil {
		log.Warn("failed to close the web server", "error", err)
	}
	_ = ch.controller.Close()
	_ = ch.store.Close()
}
