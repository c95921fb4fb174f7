package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/catalog"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/common"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/timerange"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/view"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

const (
	commandsBufferSize = 64
	storageTimeout     = 5 * time.Second
	rangeBoundLayout   = "2006-01-02 15:04 MST"
)

var log = logger.GetOrCreate("controller")

// ArgsController defines the arguments needed to create a new query-and-render controller
type ArgsController struct {
	Client               QueryClient
	Loader               CatalogLoader
	Storage              Storage
	State                *view.State
	DefaultRollup        string
	DefaultTimeRange     string
	QueryTimeout         time.Duration
	SuccessStatusDisplay time.Duration
	Location             *time.Location
}

type command struct {
	token   uint64
	request common.RefreshRequested
}

type completion struct {
	token     uint64
	selection common.Selection
	start     time.Time
	end       time.Time
	startedAt time.Time
	series    *common.SeriesResult
	err       error
}

type catalogOutcome struct {
	catalog common.Catalog
	stored  common.Selection
	err     error
	done    chan struct{}
}

type controller struct {
	client               QueryClient
	loader               CatalogLoader
	storage              Storage
	state                *view.State
	defaultRollup        string
	defaultTimeRange     string
	queryTimeout         time.Duration
	successStatusDisplay time.Duration
	loc                  *time.Location
	getTimeHandler       func() time.Time

	lastToken   uint64
	commands    chan command
	completions chan completion
	hides       chan uint64
	catalogs    chan catalogOutcome

	// loop owned
	latestToken   uint64
	catalogLoaded bool
	catalogFailed bool

	ctx        context.Context
	cancelFunc context.CancelFunc
	startOnce  sync.Once
	wg         sync.WaitGroup
}

// NewController creates a new query-and-render controller. Start must be called before any command is processed.
func NewController(args ArgsController) (*controller, error) {
	err := checkArgs(args)
	if err != nil {
		return nil, err
	}

	loc := args.Location
	if loc == nil {
		loc = time.UTC
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &controller{
		client:               args.Client,
		loader:               args.Loader,
		storage:              args.Storage,
		state:                args.State,
		defaultRollup:        args.DefaultRollup,
		defaultTimeRange:     args.DefaultTimeRange,
		queryTimeout:         args.QueryTimeout,
		successStatusDisplay: args.SuccessStatusDisplay,
		loc:                  loc,
		getTimeHandler:       time.Now,
		commands:             make(chan command, commandsBufferSize),
		completions:          make(chan completion),
		hides:                make(chan uint64),
		catalogs:             make(chan catalogOutcome),
		ctx:                  ctx,
		cancelFunc:           cancel,
	}, nil
}

func checkArgs(args ArgsController) error {
	if check.IfNil(args.Client) {
		return errors.New("nil query client")
	}
	if check.IfNil(args.Loader) {
		return errors.New("nil catalog loader")
	}
	if check.IfNil(args.Storage) {
		return errors.New("nil storage")
	}
	if args.State == nil {
		return errors.New("nil view state")
	}
	if args.DefaultRollup == "" {
		return errors.New("empty default rollup")
	}
	if args.DefaultTimeRange == "" {
		return errors.New("empty default time range")
	}
	if args.QueryTimeout <= 0 {
		return fmt.Errorf("invalid query timeout %v", args.QueryTimeout)
	}
	if args.SuccessStatusDisplay <= 0 {
		return fmt.Errorf("invalid success status display duration %v", args.SuccessStatusDisplay)
	}

	return nil
}

// Start launches the update loop
func (c *controller) Start() {
	c.startOnce.Do(func() {
		c.wg.Add(1)
		go c.processLoop()
	})
}

// Dispatch enqueues a refresh command and returns the token of the request it will issue.
// A command with an empty metric is a no-op and returns 0.
func (c *controller) Dispatch(cmd common.RefreshRequested) uint64 {
	if cmd.Metric == "" {
		log.Debug("ignoring refresh without a selected metric")
		return 0
	}
	if cmd.Rollup == "" {
		cmd.Rollup = c.defaultRollup
	}
	if cmd.Range == "" {
		cmd.Range = c.defaultTimeRange
	}

	token := atomic.AddUint64(&c.lastToken, 1)
	select {
	case c.commands <- command{token: token, request: cmd}:
	case <-c.ctx.Done():
	}

	return token
}

// RefreshAndWait dispatches the command and waits until the issued request settled or was superseded
func (c *controller) RefreshAndWait(ctx context.Context, cmd common.RefreshRequested) (view.Snapshot, error) {
	token := c.Dispatch(cmd)

	return c.state.Wait(ctx, token)
}

// LoadCatalog reloads the metric catalog and applies the outcome. The first successful load,
// or a reload that no longer contains the selected metric, triggers a refresh.
func (c *controller) LoadCatalog(ctx context.Context) error {
	loadedCatalog, err := c.loader.LoadCatalog(ctx)

	outcome := catalogOutcome{
		catalog: loadedCatalog,
		err:     err,
		done:    make(chan struct{}),
	}
	if err == nil {
		outcome.stored = c.loadStoredSelection(ctx)
	}

	select {
	case c.catalogs <- outcome:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return c.ctx.Err()
	}

	select {
	case <-outcome.done:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return c.ctx.Err()
	}

	return err
}

// Snapshot returns the current view state
func (c *controller) Snapshot() view.Snapshot {
	return c.state.Snapshot()
}

func (c *controller) loadStoredSelection(ctx context.Context) common.Selection {
	selection, found, err := c.storage.LoadSelection(ctx)
	if err != nil {
		log.Warn("failed to load the stored selection", "error", err)
		return common.Selection{}
	}
	if !found {
		return common.Selection{}
	}

	return selection
}

func (c *controller) processLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			log.Debug("controller loop is closing")
			return
		case cmd := <-c.commands:
			c.handleCommand(cmd)
		case comp := <-c.completions:
			c.handleCompletion(comp)
		case seq := <-c.hides:
			if c.state.HideStatus(seq) {
				log.Debug("status hidden", "seq", seq)
			}
		case outcome := <-c.catalogs:
			c.handleCatalog(outcome)
			close(outcome.done)
		}
	}
}

func (c *controller) handleCommand(cmd command) {
	if cmd.token < c.latestToken {
		log.Debug("dropping superseded command", "token", cmd.token, "latest", c.latestToken)
		return
	}
	c.latestToken = cmd.token

	selection := cmd.request.Selection()
	start, end := timerange.Resolve(selection.Range, c.getTimeHandler())

	c.state.BeginRequest(cmd.token, selection)
	log.Debug("request issued", "token", cmd.token, "metric", selection.Metric,
		"rollup", selection.Rollup, "range", selection.Range, "start", start, "end", end)

	c.wg.Add(1)
	go c.fetch(cmd.token, selection, start, end)
}

func (c *controller) fetch(token uint64, selection common.Selection, start time.Time, end time.Time) {
	defer c.wg.Done()

	ctx, cancel := context.WithTimeout(c.ctx, c.queryTimeout)
	defer cancel()

	comp := completion{
		token:     token,
		selection: selection,
		start:     start,
		end:       end,
		startedAt: time.Now(),
	}
	if common.IsRaw(selection.Rollup) {
		comp.series, comp.err = c.client.QueryRaw(ctx, selection.Metric, start, end)
	} else {
		comp.series, comp.err = c.client.QueryRollup(ctx, selection.Metric, start, end, selection.Rollup)
	}

	select {
	case c.completions <- comp:
	case <-c.ctx.Done():
	}
}

func (c *controller) handleCompletion(comp completion) {
	var seq uint64
	var applied bool
	if comp.err != nil {
		seq, applied = c.state.ApplyFailure(comp.token, common.NewErrorState(comp.err.Error()))
	} else {
		seq, applied = c.state.ApplySeries(comp.token, comp.series, c.describeEmptyRange(comp))
	}
	if !applied {
		return
	}

	snapshot := c.state.Snapshot()
	if comp.err != nil {
		log.Warn("query failed", "token", comp.token, "metric", comp.selection.Metric, "error", comp.err)
	} else {
		log.Debug("request settled", "token", comp.token, "state", snapshot.State.Kind.String(), "message", snapshot.State.Message)
	}

	if snapshot.State.AutoDismiss() {
		c.scheduleHide(seq)
	}

	c.persist(comp, snapshot)
}

func (c *controller) describeEmptyRange(comp completion) string {
	return fmt.Sprintf("No data points for %s between %s and %s",
		comp.selection.Metric,
		comp.start.In(c.loc).Format(rangeBoundLayout),
		comp.end.In(c.loc).Format(rangeBoundLayout))
}

func (c *controller) scheduleHide(seq uint64) {
	time.AfterFunc(c.successStatusDisplay, func() {
		select {
		case c.hides <- seq:
		case <-c.ctx.Done():
		}
	})
}

func (c *controller) persist(comp completion, snapshot view.Snapshot) {
	ctx, cancel := context.WithTimeout(c.ctx, storageTimeout)
	defer cancel()

	numPoints := 0
	if comp.err == nil && comp.series != nil {
		numPoints = len(comp.series.Points)
	}

	record := common.RefreshRecord{
		Token:      comp.token,
		Metric:     comp.selection.Metric,
		Rollup:     comp.selection.Rollup,
		Range:      comp.selection.Range,
		State:      snapshot.State.Kind.String(),
		Message:    snapshot.State.Message,
		NumPoints:  numPoints,
		StartedAt:  comp.startedAt,
		DurationMs: time.Since(comp.startedAt).Milliseconds(),
	}
	err := c.storage.RecordRefresh(ctx, record)
	if err != nil {
		log.Warn("failed to record refresh", "token", comp.token, "error", err)
	}

	err = c.storage.SaveSelection(ctx, comp.selection)
	if err != nil {
		log.Warn("failed to save selection", "error", err)
	}
}

func (c *controller) handleCatalog(outcome catalogOutcome) {
	if outcome.err != nil {
		state := catalog.StateForError(outcome.err)
		if state.Kind == common.Empty {
			c.state.SetMetrics(nil)
		}
		c.state.ShowStatus(state)
		c.catalogFailed = true
		log.Warn("catalog load failed", "state", state.Kind.String(), "message", state.Message)
		return
	}

	metrics := outcome.catalog.Metrics
	c.state.SetMetrics(metrics)
	log.Debug("catalog loaded", "metrics", len(metrics), "total records", outcome.catalog.TotalRecords)

	current := c.state.Snapshot().Selection
	// a failed load cleared the views, the recovery must redraw them
	needsRefresh := !c.catalogLoaded || c.catalogFailed
	c.catalogLoaded = true
	c.catalogFailed = false
	if !needsRefresh && contains(metrics, current.Metric) {
		return
	}

	selection := c.chooseSelection(metrics, current, outcome.stored)
	c.state.SetSelection(selection)
	c.startCommand(common.RefreshRequested{
		Metric: selection.Metric,
		Rollup: selection.Rollup,
		Range:  selection.Range,
	})
}

// chooseSelection keeps the current metric if still present, then falls back to the stored one and
// finally to the first metric of the catalog
func (c *controller) chooseSelection(metrics []string, current common.Selection, stored common.Selection) common.Selection {
	for _, candidate := range []common.Selection{current, stored} {
		if contains(metrics, candidate.Metric) {
			return c.withDefaults(candidate)
		}
	}

	return c.withDefaults(common.Selection{
		Metric: metrics[0],
		Rollup: current.Rollup,
		Range:  current.Range,
	})
}

func (c *controller) withDefaults(selection common.Selection) common.Selection {
	if selection.Rollup == "" {
		selection.Rollup = c.defaultRollup
	}
	if selection.Range == "" {
		selection.Range = c.defaultTimeRange
	}

	return selection
}

// startCommand issues a request from inside the loop
func (c *controller) startCommand(request common.RefreshRequested) {
	token := atomic.AddUint64(&c.lastToken, 1)
	c.handleCommand(command{token: token, request: request})
}

// Close stops the loop and waits for the in-flight requests to return
func (c *controller) Close() error {
	c.cancelFunc()
	c.wg.Wait()

	return nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (c *controller) IsInterfaceNil() bool {
	return c == nil
}

func contains(values []string, value string) bool {
	if value == "" {
		return false
	}
	for _, v := range values {
		if v == value {
			return true
		}
	}

	return false
}
