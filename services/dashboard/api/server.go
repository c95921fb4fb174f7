package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/catalog"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/common"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/render"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/timerange"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/view"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
	shutdownTimeout     = 5 * time.Second
)

var log = logger.GetOrCreate("api")

// ArgsWebServer defines the web server arguments
type ArgsWebServer struct {
	ListenAddress        string
	AuthUsername         string
	AuthPassword         string
	Controller           Controller
	History              HistoryProvider
	Renderer             ChartRenderer
	RollupWindows        []string
	TimeRanges           []string
	RefreshWaitTimeout   time.Duration
	SuccessStatusDisplay time.Duration
	GeneralHandler       func(http.Handler) http.Handler
}

type server struct {
	router               *gin.Engine
	httpServer           *http.Server
	listenAddr           string
	username             string
	password             string
	controller           Controller
	history              HistoryProvider
	renderer             ChartRenderer
	rollupWindows        []string
	timeRanges           []string
	refreshWaitTimeout   time.Duration
	successStatusDisplay time.Duration
	generalHandler       func(http.Handler) http.Handler
	wg                   sync.WaitGroup
}

// NewServer initializes the Gin engine and mounts all routes
func NewServer(args ArgsWebServer) (*server, error) {
	if check.IfNil(args.Controller) {
		return nil, errors.New("nil controller")
	}
	if check.IfNil(args.History) {
		return nil, errors.New("nil history provider")
	}
	if check.IfNil(args.Renderer) {
		return nil, errors.New("nil chart renderer")
	}
	if args.GeneralHandler == nil {
		return nil, errors.New("nil http handler")
	}
	if len(args.RollupWindows) == 0 {
		return nil, errors.New("empty rollup windows")
	}
	if len(args.TimeRanges) == 0 {
		return nil, errors.New("empty time ranges")
	}
	if args.RefreshWaitTimeout <= 0 {
		return nil, fmt.Errorf("invalid refresh wait timeout %v", args.RefreshWaitTimeout)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &server{
		router:               router,
		listenAddr:           args.ListenAddress,
		username:             args.AuthUsername,
		password:             args.AuthPassword,
		controller:           args.Controller,
		history:              args.History,
		renderer:             args.Renderer,
		rollupWindows:        args.RollupWindows,
		timeRanges:           args.TimeRanges,
		refreshWaitTimeout:   args.RefreshWaitTimeout,
		successStatusDisplay: args.SuccessStatusDisplay,
		generalHandler:       args.GeneralHandler,
	}

	s.setupRoutes()
	return s, nil
}

func (s *server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	protected := s.router.Group("/")
	if s.username != "" {
		protected.Use(gin.BasicAuth(gin.Accounts{s.username: s.password}))
	} else {
		log.Warn("web UI served without authentication")
	}

	protected.GET("/", s.handlePage)

	api := protected.Group("/api")
	{
		api.GET("/state", s.handleGetState)
		api.POST("/refresh", s.handleRefresh)
		api.GET("/catalog", s.handleGetCatalog)
		api.POST("/catalog/reload", s.handleReloadCatalog)
		api.GET("/chart.png", s.chartHandler(render.FormatPNG))
		api.GET("/chart.svg", s.chartHandler(render.FormatSVG))
		api.GET("/history", s.handleGetHistory)
	}

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
}

// Start listens and serves connections
func (s *server) Start() {
	handler := s.generalHandler(s.router)

	s.httpServer = &http.Server{
		Addr:    s.listenAddr,
		Handler: handler,
	}

	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		log.Error("failed to listen", "error", err)
		return
	}
	s.listenAddr = ln.Addr().String()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Info("starting HTTP server", "address", s.listenAddr)

		err := s.httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
		}
	}()
}

// Address returns the actual listen address
func (s *server) Address() string {
	return s.listenAddr
}

// Close gracefully stops the server
func (s *server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		err := s.httpServer.Shutdown(ctx)
		if err != nil {
			return err
		}
	}
	s.wg.Wait()

	return nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (s *server) IsInterfaceNil() bool {
	return s == nil
}

func (s *server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *server) handlePage(c *gin.Context) {
	snapshot := s.controller.Snapshot()

	cmd, requested := commandFromQuery(c, snapshot.Selection)
	if requested {
		var err error
		snapshot, err = s.refreshAndWait(c.Request.Context(), cmd)
		if err != nil {
			log.Debug("page rendered before the refresh settled", "error", err)
		}
	}

	data := s.buildPageData(snapshot)
	if data.HasChart {
		data.ChartSVG = s.renderInlineChart(snapshot)
	}

	var buff bytes.Buffer
	err := pageTemplate.Execute(&buff, data)
	if err != nil {
		log.Error("failed to render page", "error", err)
		c.String(http.StatusInternalServerError, "failed to render page")
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", buff.Bytes())
}

// renderInlineChart draws the chart of the same snapshot the table is built from
func (s *server) renderInlineChart(snapshot view.Snapshot) template.HTML {
	var buff bytes.Buffer
	err := s.renderer.Render(&buff, snapshot.Chart, render.FormatSVG)
	if err != nil {
		log.Warn("failed to render inline chart", "token", snapshot.Token, "error", err)
		return ""
	}

	return template.HTML(buff.String())
}

func (s *server) buildPageData(snapshot view.Snapshot) pageData {
	data := pageData{
		Metrics:       buildOptions(snapshot.Metrics, snapshot.Selection.Metric, identity),
		Rollups:       buildOptions(s.rollupWindows, snapshot.Selection.Rollup, rollupLabel),
		Ranges:        buildOptions(s.timeRanges, snapshot.Selection.Range, timerange.Label),
		StatusMessage: snapshot.State.Message,
		StatusClass:   snapshot.StatusClass,
		StatusVisible: snapshot.StatusVisible,
		ChartTitle:    snapshot.Chart.Title,
		HasChart:      !snapshot.Chart.IsEmpty(),
		Token:         snapshot.Token,
		Rows:          make([]tableRowView, 0, len(snapshot.Table.Rows)),
		Placeholder:   snapshot.Table.Placeholder,
	}
	if snapshot.StatusVisible && snapshot.State.AutoDismiss() {
		data.AutoHideMillis = s.successStatusDisplay.Milliseconds()
	}
	for _, row := range snapshot.Table.Rows {
		data.Rows = append(data.Rows, tableRowView{Timestamp: row.Timestamp, Value: row.Value})
	}

	return data
}

// commandFromQuery builds a refresh command when the page was submitted with at least one selector
func commandFromQuery(c *gin.Context, current common.Selection) (common.RefreshRequested, bool) {
	metric, hasMetric := c.GetQuery("metric")
	rollup, hasRollup := c.GetQuery("rollup")
	timeRange, hasRange := c.GetQuery("range")
	if !hasMetric && !hasRollup && !hasRange {
		return common.RefreshRequested{}, false
	}

	cmd := common.RefreshRequested{
		Metric: current.Metric,
		Rollup: current.Rollup,
		Range:  current.Range,
	}
	if hasMetric {
		cmd.Metric = metric
	}
	if hasRollup {
		cmd.Rollup = rollup
	}
	if hasRange {
		cmd.Range = timeRange
	}

	return cmd, true
}

func (s *server) refreshAndWait(ctx context.Context, cmd common.RefreshRequested) (view.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.refreshWaitTimeout)
	defer cancel()

	return s.controller.RefreshAndWait(ctx, cmd)
}

func (s *server) handleGetState(c *gin.Context) {
	c.JSON(http.StatusOK, s.controller.Snapshot())
}

func (s *server) handleRefresh(c *gin.Context) {
	var cmd common.RefreshRequested
	err := c.ShouldBindJSON(&cmd)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	wait, _ := strconv.ParseBool(c.Query("wait"))
	if !wait {
		token := s.controller.Dispatch(cmd)
		c.JSON(http.StatusAccepted, gin.H{"token": token})
		return
	}

	snapshot, err := s.refreshAndWait(c.Request.Context(), cmd)
	if err != nil {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "refresh did not settle in time", "state": snapshot})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

type rangeOption struct {
	Token string `json:"token"`
	Label string `json:"label"`
}

func (s *server) handleGetCatalog(c *gin.Context) {
	ranges := make([]rangeOption, 0, len(s.timeRanges))
	for _, token := range s.timeRanges {
		ranges = append(ranges, rangeOption{Token: token, Label: timerange.Label(token)})
	}

	c.JSON(http.StatusOK, gin.H{
		"metrics": s.controller.Snapshot().Metrics,
		"rollups": s.rollupWindows,
		"ranges":  ranges,
	})
}

func (s *server) handleReloadCatalog(c *gin.Context) {
	err := s.controller.LoadCatalog(c.Request.Context())
	snapshot := s.controller.Snapshot()

	isEmptyOutcome := errors.Is(err, catalog.ErrEmptyCatalog) || errors.Is(err, catalog.ErrPolicyFilteredEmpty)
	if err != nil && !isEmptyOutcome {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "state": snapshot.State})
		return
	}

	c.JSON(http.StatusOK, gin.H{"metrics": snapshot.Metrics, "state": snapshot.State})
}

func (s *server) chartHandler(format render.Format) gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot := s.controller.Snapshot()

		tokenStr := c.Query("token")
		if tokenStr != "" {
			token, err := strconv.ParseUint(tokenStr, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token"})
				return
			}
			if token != snapshot.Token {
				c.JSON(http.StatusConflict, gin.H{"error": "chart superseded", "token": snapshot.Token})
				return
			}
		}

		var buff bytes.Buffer
		err := s.renderer.Render(&buff, snapshot.Chart, format)
		if err != nil {
			log.Warn("failed to render chart", "format", format, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render chart"})
			return
		}

		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, format.ContentType(), buff.Bytes())
	}
}

func (s *server) handleGetHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	limitStr := c.Query("limit")
	if limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 || parsed > maxHistoryLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limit must be between 1 and %d", maxHistoryLimit)})
			return
		}
		limit = parsed
	}

	records, err := s.history.GetRefreshHistory(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": records})
}
