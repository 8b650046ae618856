package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redkyn/canvas-client/pkg/client"
	"github.com/rs/zerolog"
)

// ErrNotAList is returned when a page body is not a JSON array.
var ErrNotAList = errors.New("page body is not a JSON array")

var canvasPagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "canvas_pages_fetched_total",
	Help: "Total number of list pages fetched from Canvas",
})

// Query parameters the walker sets on follow-up pages.
const (
	ParamPerPage = "per_page"
	ParamPage    = "page"
)

// PageFetcher is the interface the Canvas client implements for single-page fetching.
type PageFetcher interface {
	Execute(ctx context.Context, r client.Request) (*client.Page, error)
}

// Walker follows Link pagination until the full result set is assembled.
type Walker struct {
	fetcher PageFetcher
	logger  zerolog.Logger
}

// NewWalker creates a new walker.
func NewWalker(fetcher PageFetcher, logger zerolog.Logger) *Walker {
	return &Walker{
		fetcher: fetcher,
		logger:  logger,
	}
}

// FetchAll returns every item of a paginated list endpoint in server order.
// Follow-up pages reuse params with per_page set to the size of the first
// page and page set to 2, 3, ... params itself is never modified.
func (w *Walker) FetchAll(ctx context.Context, path string, params url.Values) ([]json.RawMessage, error) {
	start := time.Now()

	first, err := w.fetcher.Execute(ctx, client.Request{
		Method: http.MethodGet,
		Path:   path,
		Params: cloneParams(params),
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s page 1: %w", path, err)
	}

	items, err := decodeItems(first.Body)
	if err != nil {
		return nil, fmt.Errorf("decode %s page 1: %w", path, err)
	}
	canvasPagesFetchedTotal.Inc()

	result := make([]json.RawMessage, 0, len(items))
	result = append(result, items...)

	perPage := len(items)
	link := first.Link
	pages := 1

	if last, ok := ParseLinks(link)["last"]; ok {
		w.logger.Debug().
			Str("path", path).
			Str("last", last).
			Msg("Starting paginated fetch")
	}

	for page := 2; HasNext(link); page++ {
		next := cloneParams(params)
		if perPage > 0 {
			next.Set(ParamPerPage, strconv.Itoa(perPage))
		}
		next.Set(ParamPage, strconv.Itoa(page))

		resp, err := w.fetcher.Execute(ctx, client.Request{
			Method: http.MethodGet,
			Path:   path,
			Params: next,
		})
		if err != nil {
			w.logger.Debug().
				Err(err).
				Str("path", path).
				Int("page", page).
				Int("discarded_items", len(result)).
				Msg("Page fetch failed")
			return nil, fmt.Errorf("fetch %s page %d: %w", path, page, err)
		}

		items, err := decodeItems(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("decode %s page %d: %w", path, page, err)
		}
		canvasPagesFetchedTotal.Inc()

		result = append(result, items...)
		link = resp.Link
		pages = page
	}

	w.logger.Debug().
		Str("path", path).
		Int("pages", pages).
		Int("items", len(result)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return result, nil
}

// FetchAllInto is FetchAll followed by decoding every item into T.
func FetchAllInto[T any](ctx context.Context, w *Walker, path string, params url.Values) ([]T, error) {
	raw, err := w.FetchAll(ctx, path, params)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(raw))
	for i, item := range raw {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, fmt.Errorf("decode %s item %d: %w", path, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeItems(body json.RawMessage) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAList, err)
	}
	if items == nil {
		// JSON null
		return nil, ErrNotAList
	}
	return items, nil
}

func cloneParams(params url.Values) url.Values {
	out := make(url.Values, len(params))
	for key, values := range params {
		out[key] = append([]string(nil), values...)
	}
	return out
}
