package pipeline

import (
	"fmt"
	"time"

	"dco-creatives/internal/catalog"
)

const ReportFile = "report.json"

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeOutOfStock
	outcomeUnchanged
	outcomeGenerated
	outcomeFailed
)

// Report summarises one processing cycle. It is stored next to the feeds.
type Report struct {
	Started    time.Time         `json:"started"`
	Finished   time.Time         `json:"finished"`
	Rows       int               `json:"rows"`
	Deleted    int               `json:"deleted"`
	Skipped    int               `json:"skipped"`
	OutOfStock int               `json:"out_of_stock"`
	Unchanged  int               `json:"unchanged"`
	Generated  int               `json:"generated"`
	Failed     int               `json:"failed"`
	Errors     []string          `json:"errors,omitempty"`
	Feeds      catalog.Published `json:"feeds"`
}

func (r *Report) add(crm string, out outcome, err error) {
	switch out {
	case outcomeSkipped:
		r.Skipped++
	case outcomeOutOfStock:
		r.OutOfStock++
	case outcomeUnchanged:
		r.Unchanged++
	case outcomeGenerated:
		r.Generated++
	case outcomeFailed:
		r.Failed++
	}
	if err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", crm, err))
	}
}

func (r Report) total() int {
	return r.Skipped + r.OutOfStock + r.Unchanged + r.Generated + r.Failed
}

func (r Report) summary() string {
	return fmt.Sprintf("%d generated, %d unchanged, %d out of stock, %d skipped, %d failed, %d deleted",
		r.Generated, r.Unchanged, r.OutOfStock, r.Skipped, r.Failed, r.Deleted)
}
