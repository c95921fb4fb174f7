package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/catalog"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/client"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/common"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/render"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/testsCommon"
	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC)

func createMockArgs() ArgsController {
	return ArgsController{
		Client:               &testsCommon.QueryClientStub{},
		Loader:               &testsCommon.CatalogLoaderStub{},
		Storage:              &testsCommon.StorageStub{},
		State:                view.NewState(time.UTC),
		DefaultRollup:        "raw",
		DefaultTimeRange:     "last-1h",
		QueryTimeout:         time.Second,
		SuccessStatusDisplay: time.Minute,
		Location:             time.UTC,
	}
}

func createStartedController(t *testing.T, args ArgsController) *controller {
	c, err := NewController(args)
	require.NoError(t, err)
	c.getTimeHandler = func() time.Time {
		return fixedNow
	}
	c.Start()
	t.Cleanup(func() {
		_ = c.Close()
	})

	return c
}

func float(v float64) *float64 {
	return &v
}

func series(metric string, rollup string, values ...float64) *common.SeriesResult {
	result := &common.SeriesResult{MetricName: metric, Rollup: rollup}
	for i, v := range values {
		dp := common.DataPoint{Timestamp: fixedNow.Add(time.Duration(i-len(values)) * time.Minute)}
		if common.IsRaw(rollup) {
			dp.Value = float(v)
		} else {
			dp.Avg = float(v)
		}
		result.Points = append(result.Points, dp)
	}

	return result
}

func refreshAndWait(t *testing.T, c *controller, cmd common.RefreshRequested) view.Snapshot {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snapshot, err := c.RefreshAndWait(ctx, cmd)
	require.NoError(t, err)

	return snapshot
}

func TestNewController(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		mutate      func(args *ArgsController)
		errContains string
	}{
		{"nil client", func(args *ArgsController) { args.Client = nil }, "nil query client"},
		{"nil loader", func(args *ArgsController) { args.Loader = nil }, "nil catalog loader"},
		{"nil storage", func(args *ArgsController) { args.Storage = nil }, "nil storage"},
		{"nil state", func(args *ArgsController) { args.State = nil }, "nil view state"},
		{"empty default rollup", func(args *ArgsController) { args.DefaultRollup = "" }, "empty default rollup"},
		{"empty default range", func(args *ArgsController) { args.DefaultTimeRange = "" }, "empty default time range"},
		{"invalid query timeout", func(args *ArgsController) { args.QueryTimeout = 0 }, "invalid query timeout"},
		{"invalid success display", func(args *ArgsController) { args.SuccessStatusDisplay = 0 }, "invalid success status display"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			args := createMockArgs()
			tt.mutate(&args)

			c, err := NewController(args)
			assert.Nil(t, c)
			assert.True(t, c.IsInterfaceNil())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}

	t.Run("should work", func(t *testing.T) {
		t.Parallel()

		c, err := NewController(createMockArgs())
		require.NoError(t, err)
		assert.False(t, c.IsInterfaceNil())
		assert.NoError(t, c.Close())
	})
}

func TestController_DispatchWithoutMetric(t *testing.T) {
	t.Parallel()

	args := createMockArgs()
	args.Client = &testsCommon.QueryClientStub{
		QueryRawHandler: func(ctx context.Context, metric string, start time.Time, end time.Time) (*common.SeriesResult, error) {
			require.Fail(t, "should not query")
			return nil, nil
		},
	}
	c := createStartedController(t, args)

	token := c.Dispatch(common.RefreshRequested{Rollup: "raw", Range: "last-1h"})
	assert.Equal(t, uint64(0), token)

	snapshot := refreshAndWait(t, c, common.RefreshRequested{})
	assert.Equal(t, common.Idle, snapshot.State.Kind)
	assert.False(t, snapshot.StatusVisible)
}

func TestController_Refresh(t *testing.T) {
	t.Parallel()

	t.Run("raw mode success updates chart and table together", func(t *testing.T) {
		t.Parallel()

		var mut sync.Mutex
		records := make([]common.RefreshRecord, 0)
		var savedSelection common.Selection

		args := createMockArgs()
		args.Client = &testsCommon.QueryClientStub{
			QueryRawHandler: func(ctx context.Context, metric string, start time.Time, end time.Time) (*common.SeriesResult, error) {
				assert.Equal(t, "cpu_usage", metric)
				assert.Equal(t, fixedNow.Add(-time.Hour), start)
				assert.Equal(t, fixedNow, end)
				return series(metric, common.RawRollup, 1, 2.5, 3), nil
			},
			QueryRollupHandler: func(ctx context.Context, metric string, start time.Time, end time.Time, window string) (*common.SeriesResult, error) {
				require.Fail(t, "should not query the rollup endpoint")
				return nil, nil
			},
		}
		args.Storage = &testsCommon.StorageStub{
			RecordRefreshHandler: func(ctx context.Context, record common.RefreshRecord) error {
				mut.Lock()
				records = append(records, record)
				mut.Unlock()
				return nil
			},
			SaveSelectionHandler: func(ctx context.Context, selection common.Selection) error {
				mut.Lock()
				savedSelection = selection
				mut.Unlock()
				return nil
			},
		}
		c := createStartedController(t, args)

		snapshot := refreshAndWait(t, c, common.RefreshRequested{Metric: "cpu_usage", Rollup: "raw", Range: "last-1h"})
		assert.Equal(t, common.Success, snapshot.State.Kind)
		assert.Equal(t, "Loaded 3 data points", snapshot.State.Message)
		assert.Equal(t, "success", snapshot.StatusClass)
		assert.Equal(t, "cpu_usage (raw)", snapshot.Chart.Title)
		assert.Len(t, snapshot.Chart.Labels, 3)
		require.Len(t, snapshot.Table.Rows, 3)
		assert.Equal(t, "2.50", snapshot.Table.Rows[1].Value)

		assert.Eventually(t, func() bool {
			mut.Lock()
			defer mut.Unlock()
			return len(records) == 1
		}, time.Second, 5*time.Millisecond)

		mut.Lock()
		defer mut.Unlock()
		assert.Equal(t, "success", records[0].State)
		assert.Equal(t, 3, records[0].NumPoints)
		assert.Equal(t, snapshot.Token, records[0].Token)
		assert.Equal(t, common.Selection{Metric: "cpu_usage", Rollup: "raw", Range: "last-1h"}, savedSelection)
	})
	t.Run("same command twice yields identical views", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs()
		args.Client = &testsCommon.QueryClientStub{
			QueryRawHandler: func(ctx context.Context, metric string, start time.Time, end time.Time) (*common.SeriesResult, error) {
				return series(metric, common.RawRollup, 1, 2.5, 3), nil
			},
		}
		c := createStartedController(t, args)

		cmd := common.RefreshRequested{Metric: "cpu_usage", Rollup: "raw", Range: "last-1h"}
		first := refreshAndWait(t, c, cmd)
		second := refreshAndWait(t, c, cmd)

		assert.Greater(t, second.Token, first.Token)
		assert.Equal(t, first.State, second.State)
		assert.Equal(t, first.Chart, second.Chart)
		assert.Equal(t, first.Table, second.Table)
	})
	t.Run("rollup mode queries the rollup endpoint with the window", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs()
		args.Client = &testsCommon.QueryClientStub{
			QueryRollupHandler: func(ctx context.Context, metric string, start time.Time, end time.Time, window string) (*common.SeriesResult, error) {
				assert.Equal(t, "5m", window)
				assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), start)
				assert.Equal(t, time.Date(2025, time.December, 31, 23, 59, 59, 0, time.UTC), end)
				return series(metric, window, 4, 5), nil
			},
		}
		c := createStartedController(t, args)

		snapshot := refreshAndWait(t, c, common.RefreshRequested{Metric: "cpu_usage", Rollup: "5m", Range: "year-2025"})
		assert.Equal(t, "Loaded 2 data points", snapshot.State.Message)
		assert.Equal(t, "cpu_usage (5m)", snapshot.Chart.Title)
	})
	t.Run("missing rollup and range use the defaults", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs()
		args.DefaultTimeRange = "last-24h"
		args.Client = &testsCommon.QueryClientStub{
			QueryRawHandler: func(ctx context.Context, metric string, start time.Time, end time.Time) (*common.SeriesResult, error) {
				assert.Equal(t, 24*time.Hour, end.Sub(start))
				return series(metric, common.RawRollup, 1), nil
			},
		}
		c := createStartedController(t, args)

		snapshot := refreshAndWait(t, c, common.RefreshRequested{Metric: "cpu_usage"})
		assert.Equal(t, common.Selection{Metric: "cpu_usage", Rollup: "raw", Range: "last-24h"}, snapshot.Selection)
		assert.Equal(t, "Loaded 1 data points", snapshot.State.Message)
	})
	t.Run("http error clears both views", func(t *testing.T) {
		t.Parallel()

		fail := false
		args := createMockArgs()
		args.Client = &testsCommon.QueryClientStub{
			QueryRawHandler: func(ctx context.Context, metric string, start time.Time, end time.Time) (*common.SeriesResult, error) {
				if fail {
					return nil, &client.HTTPError{Status: http.StatusServiceUnavailable, Detail: "store unavailable"}
				}
				return series(metric, common.RawRollup, 1, 2), nil
			},
		}
		c := createStartedController(t, args)

		snapshot := refreshAndWait(t, c, common.RefreshRequested{Metric: "cpu_usage"})
		require.Equal(t, common.Success, snapshot.State.Kind)

		fail = true
		snapshot = refreshAndWait(t, c, common.RefreshRequested{Metric: "cpu_usage"})
		assert.Equal(t, common.Error, snapshot.State.Kind)
		assert.Equal(t, "Error: store unavailable", snapshot.State.Message)
		assert.Equal(t, "error", snapshot.StatusClass)
		assert.True(t, snapshot.Chart.IsEmpty())
		assert.Equal(t, render.EmptyTable(), snapshot.Table)
	})
	t.Run("transport timeout becomes an error state", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs()
		args.QueryTimeout = 20 * time.Millisecond
		args.Client = &testsCommon.QueryClientStub{
			QueryRawHandler: func(ctx context.Context, metric string, start time.Time, end time.Time) (*common.SeriesResult, error) {
				<-ctx.Done()
				return nil, &client.TransportError{Err: ctx.Err()}
			},
		}
		c := createStartedController(t, args)

		snapshot := refreshAndWait(t, c, common.RefreshRequested{Metric: "cpu_usage"})
		assert.Equal(t, "Error: network error: context deadline exceeded", snapshot.State.Message)
	})
	t.Run("zero points produce the empty state naming the range", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs()
		args.Client = &testsCommon.QueryClientStub{
			QueryRawHandler: func(ctx context.Context, metric string, start time.Time, end time.Time) (*common.SeriesResult, error) {
				return &common.SeriesResult{MetricName: metric, Rollup: common.RawRollup}, nil
			},
		}
		c := createStartedController(t, args)

		snapshot := refreshAndWait(t, c, common.RefreshRequested{Metric: "cpu_usage", Rollup: "raw", Range: "year-2025"})
		assert.Equal(t, common.Empty, snapshot.State.Kind)
		assert.Equal(t, "No data points for cpu_usage between 2025-01-01 00:00 UTC and 2025-12-31 23:59 UTC", snapshot.State.Message)
		assert.Equal(t, "empty", snapshot.StatusClass)
		assert.True(t, snapshot.Chart.IsEmpty())
		assert.Equal(t, render.EmptyTable(), snapshot.Table)
	})
	t.Run("unknown range is a zero width query", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs()
		args.Client = &testsCommon.QueryClientStub{
			QueryRawHandler: func(ctx context.Context, metric string, start time.Time, end time.Time) (*common.SeriesResult, error) {
				assert.Equal(t, start, end)
				return &common.SeriesResult{MetricName: metric, Rollup: common.RawRollup}, nil
			},
		}
		c := createStartedController(t, args)

		snapshot := refreshAndWait(t, c, common.RefreshRequested{Metric: "cpu_usage", Range: "last-2h"})
		assert.Equal(t, common.Empty, snapshot.State.Kind)
	})
}

func TestController_StaleResponseIsDropped(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	firstReturned := make(chan struct{})
	var mut sync.Mutex
	records := make([]common.RefreshRecord, 0)

	args := createMockArgs()
	args.Client = &testsCommon.QueryClientStub{
		QueryRawHandler: func(ctx context.Context, metric string, start time.Time, end time.Time) (*common.SeriesResult, error) {
			if metric == "slow" {
				<-release
				defer close(firstReturned)
				return series(metric, common.RawRollup, 1), nil
			}
			return series(metric, common.RawRollup, 1, 2, 3, 4), nil
		},
	}
	args.Storage = &testsCommon.StorageStub{
		RecordRefreshHandler: func(ctx context.Context, record common.RefreshRecord) error {
			mut.Lock()
			records = append(records, record)
			mut.Unlock()
			return nil
		},
	}
	c := createStartedController(t, args)

	slowToken := c.Dispatch(common.RefreshRequested{Metric: "slow"})
	snapshot := refreshAndWait(t, c, common.RefreshRequested{Metric: "fast"})
	require.Greater(t, snapshot.Token, slowToken)
	require.Equal(t, "Loaded 4 data points", snapshot.State.Message)

	close(release)
	<-firstReturned

	assert.Never(t, func() bool {
		current := c.Snapshot()
		return current.State.Message != "Loaded 4 data points" || len(current.Table.Rows) != 4
	}, 100*time.Millisecond, 10*time.Millisecond)

	mut.Lock()
	defer mut.Unlock()
	require.Len(t, records, 1)
	assert.Equal(t, "fast", records[0].Metric)
}

func TestController_StatusVisibility(t *testing.T) {
	t.Parallel()

	t.Run("success hides after the configured delay", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs()
		args.SuccessStatusDisplay = 30 * time.Millisecond
		args.Client = &testsCommon.QueryClientStub{
			QueryRawHandler: func(ctx context.Context, metric string, start time.Time, end time.Time) (*common.SeriesResult, error) {
				return series(metric, common.RawRollup, 1), nil
			},
		}
		c := createStartedController(t, args)

		snapshot := refreshAndWait(t, c, common.RefreshRequested{Metric: "cpu_usage"})
		require.True(t, snapshot.StatusVisible)

		assert.Eventually(t, func() bool {
			return !c.Snapshot().StatusVisible
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, common.Success, c.Snapshot().State.Kind)
		assert.Len(t, c.Snapshot().Table.Rows, 1)
	})
	t.Run("error stays visible", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs()
		args.SuccessStatusDisplay = 10 * time.Millisecond
		args.Client = &testsCommon.QueryClientStub{
			QueryRawHandler: func(ctx context.Context, metric string, start time.Time, end time.Time) (*common.SeriesResult, error) {
				return nil, &client.UpstreamError{Message: "bad metric"}
			},
		}
		c := createStartedController(t, args)

		snapshot := refreshAndWait(t, c, common.RefreshRequested{Metric: "cpu_usage"})
		require.Equal(t, common.Error, snapshot.State.Kind)

		assert.Never(t, func() bool {
			return !c.Snapshot().StatusVisible
		}, 100*time.Millisecond, 10*time.Millisecond)
	})
}

func TestController_LoadCatalog(t *testing.T) {
	t.Parallel()

	t.Run("first load selects the first metric and refreshes", func(t *testing.T) {
		t.Parallel()

		queried := make(chan string, 10)
		args := createMockArgs()
		args.Loader = &testsCommon.CatalogLoaderStub{
			LoadCatalogHandler: func(ctx context.Context) (common.Catalog, error) {
				return common.Catalog{Metrics: []string{"cpu_usage", "mem_usage"}, TotalRecords: 10}, nil
			},
		}
		args.Client = &testsCommon.QueryClientStub{
			QueryRawHandler: func(ctx context.Context, metric string, start time.Time, end time.Time) (*common.SeriesResult, error) {
				queried <- metric
				return series(metric, common.RawRollup, 1), nil
			},
		}
		c := createStartedController(t, args)

		require.NoError(t, c.LoadCatalog(context.Background()))
		snapshot := c.Snapshot()
		assert.Equal(t, []string{"cpu_usage", "mem_usage"}, snapshot.Metrics)
		assert.Equal(t, common.Selection{Metric: "cpu_usage", Rollup: "raw", Range: "last-1h"}, snapshot.Selection)

		_, err := c.state.Wait(context.Background(), snapshot.Token)
		require.NoError(t, err)
		assert.Equal(t, "cpu_usage", <-queried)

		require.NoError(t, c.LoadCatalog(context.Background()))
		assert.Equal(t, snapshot.Token, c.Snapshot().Token, "a reload keeping the selected metric must not refresh")
	})
	t.Run("stored selection is restored", func(t *testing.T) {
		t.Parallel()

		stored := common.Selection{Metric: "mem_usage", Rollup: "5m", Range: "last-7d"}
		args := createMockArgs()
		args.Loader = &testsCommon.CatalogLoaderStub{
			LoadCatalogHandler: func(ctx context.Context) (common.Catalog, error) {
				return common.Catalog{Metrics: []string{"cpu_usage", "mem_usage"}}, nil
			},
		}
		args.Storage = &testsCommon.StorageStub{
			LoadSelectionHandler: func(ctx context.Context) (common.Selection, bool, error) {
				return stored, true, nil
			},
		}
		c := createStartedController(t, args)

		require.NoError(t, c.LoadCatalog(context.Background()))
		assert.Equal(t, stored, c.Snapshot().Selection)
	})
	t.Run("reload without the selected metric refreshes", func(t *testing.T) {
		t.Parallel()

		metrics := []string{"cpu_usage"}
		args := createMockArgs()
		args.Loader = &testsCommon.CatalogLoaderStub{
			LoadCatalogHandler: func(ctx context.Context) (common.Catalog, error) {
				return common.Catalog{Metrics: metrics}, nil
			},
		}
		c := createStartedController(t, args)

		require.NoError(t, c.LoadCatalog(context.Background()))
		firstToken := c.Snapshot().Token

		metrics = []string{"disk_usage"}
		require.NoError(t, c.LoadCatalog(context.Background()))
		snapshot := c.Snapshot()
		assert.Greater(t, snapshot.Token, firstToken)
		assert.Equal(t, "disk_usage", snapshot.Selection.Metric)
	})
	t.Run("reload after a failure with the same metric refreshes", func(t *testing.T) {
		t.Parallel()

		failures := []error{
			&client.TransportError{Err: errors.New("connection refused")},
			&catalog.EmptyCatalogError{TotalRecords: 0},
		}
		for _, failure := range failures {
			loadErr := error(nil)
			args := createMockArgs()
			args.Loader = &testsCommon.CatalogLoaderStub{
				LoadCatalogHandler: func(ctx context.Context) (common.Catalog, error) {
					if loadErr != nil {
						return common.Catalog{}, loadErr
					}
					return common.Catalog{Metrics: []string{"cpu_usage"}}, nil
				},
			}
			args.Client = &testsCommon.QueryClientStub{
				QueryRawHandler: func(ctx context.Context, metric string, start time.Time, end time.Time) (*common.SeriesResult, error) {
					return series(metric, common.RawRollup, 1, 2), nil
				},
			}
			c := createStartedController(t, args)

			require.NoError(t, c.LoadCatalog(context.Background()))
			snapshot, err := c.state.Wait(context.Background(), c.Snapshot().Token)
			require.NoError(t, err)
			require.Equal(t, common.Success, snapshot.State.Kind)
			firstToken := snapshot.Token

			loadErr = failure
			_ = c.LoadCatalog(context.Background())
			require.Empty(t, c.Snapshot().Table.Rows)

			loadErr = nil
			require.NoError(t, c.LoadCatalog(context.Background()))
			recoveryToken := c.Snapshot().Token
			assert.Greater(t, recoveryToken, firstToken)

			snapshot, err = c.state.Wait(context.Background(), recoveryToken)
			require.NoError(t, err)
			assert.Equal(t, common.Success, snapshot.State.Kind)
			assert.Equal(t, []string{"cpu_usage"}, snapshot.Metrics)
			assert.Len(t, snapshot.Table.Rows, 2)
			assert.Len(t, snapshot.Chart.Labels, 2)

			require.NoError(t, c.LoadCatalog(context.Background()))
			assert.Equal(t, recoveryToken, c.Snapshot().Token)
		}
	})
	t.Run("empty catalog shows the neutral empty state", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs()
		args.Loader = &testsCommon.CatalogLoaderStub{
			LoadCatalogHandler: func(ctx context.Context) (common.Catalog, error) {
				return common.Catalog{}, &catalog.EmptyCatalogError{TotalRecords: 0}
			},
		}
		c := createStartedController(t, args)

		err := c.LoadCatalog(context.Background())
		assert.ErrorIs(t, err, catalog.ErrEmptyCatalog)

		snapshot := c.Snapshot()
		assert.Equal(t, common.Empty, snapshot.State.Kind)
		assert.Equal(t, "No metrics available: the store has no records", snapshot.State.Message)
		assert.Empty(t, snapshot.Metrics)
		assert.Equal(t, uint64(0), snapshot.Token)
	})
	t.Run("allow-list policy message differs from the empty catalog one", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs()
		args.Loader = &testsCommon.CatalogLoaderStub{
			LoadCatalogHandler: func(ctx context.Context) (common.Catalog, error) {
				return common.Catalog{}, &catalog.PolicyFilteredError{NumAvailable: 4}
			},
		}
		c := createStartedController(t, args)

		_ = c.LoadCatalog(context.Background())
		assert.Equal(t, "No metrics match the configured allow-list (4 metrics available)", c.Snapshot().State.Message)
	})
	t.Run("transport failure shows an error", func(t *testing.T) {
		t.Parallel()

		args := createMockArgs()
		args.Loader = &testsCommon.CatalogLoaderStub{
			LoadCatalogHandler: func(ctx context.Context) (common.Catalog, error) {
				return common.Catalog{}, &client.TransportError{Err: errors.New("connection refused")}
			},
		}
		c := createStartedController(t, args)

		_ = c.LoadCatalog(context.Background())
		snapshot := c.Snapshot()
		assert.Equal(t, common.Error, snapshot.State.Kind)
		assert.Equal(t, fmt.Sprintf("Error: loading metrics failed: %s", "network error: connection refused"), snapshot.State.Message)
	})
}
