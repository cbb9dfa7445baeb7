package scheduler

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"dco-creatives/internal/logging"
)

// TempJanitor removes run directories that crashed runs left behind in the
// render temp dir.
type TempJanitor struct {
	dir        string
	staleAfter time.Duration
	every      time.Duration
	log        *logging.Logger
	now        func() time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewTempJanitor(dir string, every, staleAfter time.Duration, log *logging.Logger) *TempJanitor {
	return &TempJanitor{
		dir:        dir,
		staleAfter: staleAfter,
		every:      every,
		log:        log,
		now:        time.Now,
		stopCh:     make(chan struct{}),
	}
}

// Start sweeps once and then every j.every until ctx ends or Stop is called.
func (j *TempJanitor) Start(ctx context.Context) {
	j.log.Infof("janitor: watching %s every %s", j.dir, j.every)
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		j.sweepAndLog()

		ticker := time.NewTicker(j.every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-j.stopCh:
				return
			case <-ticker.C:
				j.sweepAndLog()
			}
		}
	}()
}

func (j *TempJanitor) Stop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
	j.wg.Wait()
	j.log.Infof("janitor: stopped")
}

func (j *TempJanitor) sweepAndLog() {
	removed, err := j.Sweep()
	if err != nil {
		j.log.Errorf("janitor: %v", err)
	}
	if removed > 0 {
		j.log.Infof("janitor: removed %d stale run directories", removed)
	}
}

// Sweep deletes every entry of the temp dir not modified within staleAfter.
func (j *TempJanitor) Sweep() (int, error) {
	entries, err := os.ReadDir(j.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var result *multierror.Error
	removed := 0
	cutoff := j.now().Add(-j.staleAfter)
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(j.dir, e.Name())); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		removed++
	}
	return removed, result.ErrorOrNil()
}
