package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/iulianpascalau/metrics-dashboard/services/dashboard/common"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

const firstPage = 1

var log = logger.GetOrCreate("catalog")

// ArgsLoader defines the arguments needed to create a new catalog loader
type ArgsLoader struct {
	Fetcher   CatalogFetcher
	PageSize  int
	AllowList []string
}

type loader struct {
	fetcher   CatalogFetcher
	pageSize  int
	allowList map[string]struct{}
}

// NewLoader creates a new catalog loader
func NewLoader(args ArgsLoader) (*loader, error) {
	if check.IfNil(args.Fetcher) {
		return nil, errors.New("nil catalog fetcher")
	}
	if args.PageSize <= 0 {
		return nil, fmt.Errorf("invalid page size %d", args.PageSize)
	}

	l := &loader{
		fetcher:  args.Fetcher,
		pageSize: args.PageSize,
	}
	if len(args.AllowList) > 0 {
		l.allowList = make(map[string]struct{}, len(args.AllowList))
		for _, name := range args.AllowList {
			l.allowList[name] = struct{}{}
		}
	}

	return l, nil
}

// LoadCatalog reads the catalog, removes duplicates and applies the allow-list. The returned
// catalog always contains at least one metric when the error is nil.
func (l *loader) LoadCatalog(ctx context.Context) (common.Catalog, error) {
	catalog, err := l.fetcher.FetchCatalog(ctx, firstPage, l.pageSize)
	if err != nil {
		return common.Catalog{}, err
	}

	catalog.Metrics = unique(catalog.Metrics)
	if len(catalog.Metrics) == 0 {
		return catalog, &EmptyCatalogError{TotalRecords: catalog.TotalRecords}
	}

	if len(l.allowList) == 0 {
		log.Debug("catalog loaded", "num metrics", len(catalog.Metrics), "total records", catalog.TotalRecords)
		return catalog, nil
	}

	filtered := make([]string, 0, len(catalog.Metrics))
	for _, name := range catalog.Metrics {
		_, allowed := l.allowList[name]
		if allowed {
			filtered = append(filtered, name)
		}
	}

	log.Debug("catalog loaded", "num metrics", len(catalog.Metrics), "num allowed", len(filtered),
		"total records", catalog.TotalRecords)

	if len(filtered) == 0 {
		return common.Catalog{TotalRecords: catalog.TotalRecords}, &PolicyFilteredError{NumAvailable: len(catalog.Metrics)}
	}

	catalog.Metrics = filtered

	return catalog, nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (l *loader) IsInterfaceNil() bool {
	return l == nil
}

func unique(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	result := make([]string, 0, len(names))
	for _, name := range names {
		_, found := seen[name]
		if found {
			continue
		}

		seen[name] = struct{}{}
		result = append(result, name)
	}

	return result
}
