// Package sheets downloads Google Sheets tabs as CSV.
package sheets

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/eapache/go-resiliency/retrier"
	"golang.org/x/sync/errgroup"

	"dco-creatives/internal"
	"dco-creatives/internal/logging"
	"dco-creatives/internal/model"
)

// SheetName is the logical name of the planning tab.
const SheetName = "sheet"

const defaultBaseURL = "https://docs.google.com/spreadsheets/d"

// Record is one CSV line keyed by header.
type Record map[string]string

type statusError struct {
	code int
}

func (e statusError) Error() string { return fmt.Sprintf("http %d", e.code) }

// transient retries network failures and 5xx answers only.
type transient struct{}

func (transient) Classify(err error) retrier.Action {
	if err == nil {
		return retrier.Succeed
	}
	var se statusError
	if errors.As(err, &se) && se.code < 500 {
		return retrier.Fail
	}
	if errors.Is(err, context.Canceled) {
		return retrier.Fail
	}
	return retrier.Retry
}

type Fetcher struct {
	cfg     internal.SheetsConfig
	baseURL string
	client  *http.Client
	retry   *retrier.Retrier
	log     *logging.Logger
}

func NewFetcher(cfg internal.SheetsConfig, log *logging.Logger) *Fetcher {
	return &Fetcher{
		cfg:     cfg,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		retry:   newRetrier(cfg.Attempts, cfg.BaseDelay),
		log:     log,
	}
}

// newRetrier allows attempts tries in total, waiting base, 2*base, ... in
// between. Only transient failures are retried.
func newRetrier(attempts int, base time.Duration) *retrier.Retrier {
	return retrier.New(retrier.ExponentialBackoff(attempts-1, base), transient{})
}

// Fetch downloads each gid in parallel. A tab that fails comes back empty.
func (f *Fetcher) Fetch(ctx context.Context, id string, gids map[string]string) map[string][]Record {
	var (
		mu  sync.Mutex
		out = make(map[string][]Record, len(gids))
		g   errgroup.Group
	)
	for name, gid := range gids {
		g.Go(func() error {
			records, err := f.fetchOne(ctx, id, gid)
			if err != nil {
				f.log.Errorf("sheets: tab %q (gid %s): %v", name, gid, err)
				records = []Record{}
			}
			mu.Lock()
			out[name] = records
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Rows fetches the configured planning tab and maps it onto rows.
func (f *Fetcher) Rows(ctx context.Context) []model.Row {
	sheets := f.Fetch(ctx, f.cfg.ID, map[string]string{SheetName: f.cfg.Tab})
	rows := make([]model.Row, 0, len(sheets[SheetName]))
	for _, rec := range sheets[SheetName] {
		rows = append(rows, model.RowFromRecord(rec))
	}
	return rows
}

func (f *Fetcher) fetchOne(ctx context.Context, id, gid string) ([]Record, error) {
	url := fmt.Sprintf("%s/%s/export?format=csv&gid=%s", f.baseURL, id, gid)
	var body []byte
	err := f.retry.RunCtx(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return statusError{resp.StatusCode}
		}
		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return Parse(body)
}

// Parse reads CSV with a header row. Blank lines are skipped and every
// header and value is trimmed.
func Parse(data []byte) ([]Record, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	records := []Record{}
	for {
		line, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		if blank(line) {
			continue
		}
		rec := make(Record, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			if i < len(line) {
				rec[col] = strings.TrimSpace(line[i])
			} else {
				rec[col] = ""
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func blank(line []string) bool {
	for _, v := range line {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
