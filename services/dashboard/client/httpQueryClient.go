package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/common"
	logger "github.com/multiversx/mx-chain-logger-go"
)

const (
	catalogEndpoint = "/metrics/list"
	rawEndpoint     = "/query/raw"
	rollupEndpoint  = "/query/rollup"

	maxBodySize = 32 * 1024 * 1024
)

var log = logger.GetOrCreate("client")

type httpQueryClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPQueryClient creates a client for the query service located at baseURL
func NewHTTPQueryClient(baseURL string, timeout time.Duration) (*httpQueryClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if len(baseURL) == 0 {
		return nil, errors.New("empty query service URL")
	}

	_, err := url.ParseRequestURI(baseURL)
	if err != nil {
		return nil, err
	}

	return &httpQueryClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// FetchCatalog reads one page of the metric catalog
func (c *httpQueryClient) FetchCatalog(ctx context.Context, page int, pageSize int) (common.Catalog, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(pageSize))

	body, err := c.get(ctx, catalogEndpoint, params)
	if err != nil {
		return common.Catalog{}, err
	}

	return parseCatalog(body)
}

// QueryRaw fetches the point-level observations of a metric in [start, end)
func (c *httpQueryClient) QueryRaw(ctx context.Context, metric string, start time.Time, end time.Time) (*common.SeriesResult, error) {
	params := seriesParams(metric, start, end)

	body, err := c.get(ctx, rawEndpoint, params)
	if err != nil {
		return nil, err
	}

	return finishSeries(body, metric, common.RawRollup, start, end)
}

// QueryRollup fetches the pre-aggregated buckets of a metric in [start, end) for the provided window
func (c *httpQueryClient) QueryRollup(ctx context.Context, metric string, start time.Time, end time.Time, window string) (*common.SeriesResult, error) {
	params := seriesParams(metric, start, end)
	params.Set("window", window)

	body, err := c.get(ctx, rollupEndpoint, params)
	if err != nil {
		return nil, err
	}

	return finishSeries(body, metric, window, start, end)
}

func seriesParams(metric string, start time.Time, end time.Time) url.Values {
	params := url.Values{}
	params.Set("metric_name", metric)
	params.Set("start_time", start.UTC().Format(time.RFC3339))
	params.Set("end_time", end.UTC().Format(time.RFC3339))

	return params
}

func finishSeries(body []byte, metric string, rollup string, start time.Time, end time.Time) (*common.SeriesResult, error) {
	result, err := parseSeries(body, metric, rollup)
	if err != nil {
		return nil, err
	}

	result.Start = start
	result.End = end

	return result, nil
}

func (c *httpQueryClient) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	fullURL := c.baseURL + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	log.Trace("querying", "url", fullURL)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{
			Status: resp.StatusCode,
			Detail: extractErrorDetail(body),
		}
	}

	return body, nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (c *httpQueryClient) IsInterfaceNil() bool {
	return c == nil
}
