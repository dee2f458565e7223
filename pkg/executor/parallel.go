package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/devicelab-dev/gesture-runner/pkg/core"
	"github.com/devicelab-dev/gesture-runner/pkg/logger"
	"github.com/devicelab-dev/gesture-runner/pkg/scenario"
	"golang.org/x/sync/errgroup"
)

// DeviceWorker is one device that pulls scenarios from the shared queue.
type DeviceWorker struct {
	DeviceID string
	Factory  SessionFactory
}

// workItem represents a scenario and its index in the original list.
type workItem struct {
	scenario *scenario.Scenario
	index    int
}

// ParallelRunner runs scenarios concurrently across independent devices.
// Each worker opens its own sessions; nothing is shared between them.
type ParallelRunner struct {
	workers []DeviceWorker
	config  RunnerConfig
}

// NewParallelRunner creates a parallel runner with multiple device workers.
func NewParallelRunner(workers []DeviceWorker, config RunnerConfig) *ParallelRunner {
	return &ParallelRunner{
		workers: workers,
		config:  config,
	}
}

// Run executes scenarios using a work queue. Results keep the input order.
func (pr *ParallelRunner) Run(ctx context.Context, scenarios []*scenario.Scenario) (*core.SuiteResult, error) {
	if len(pr.workers) == 0 {
		return nil, fmt.Errorf("no workers available")
	}

	suite := core.NewSuiteResult(pr.config.suiteName())

	workQueue := make(chan workItem, len(scenarios))
	for i, sc := range scenarios {
		workQueue <- workItem{scenario: sc, index: i}
	}
	close(workQueue)

	results := make([]core.ScenarioResult, len(scenarios))
	var resultsMu sync.Mutex
	total := len(scenarios)

	var g errgroup.Group
	for _, w := range pr.workers {
		w := w
		g.Go(func() error {
			cfg := pr.config
			cfg.DeviceID = w.DeviceID
			runner := New(w.Factory, cfg)

			for item := range workQueue {
				var result core.ScenarioResult
				if ctx.Err() != nil {
					result = skippedScenario(item.scenario, w.DeviceID, "run cancelled")
				} else {
					result = runner.runScenario(ctx, item.scenario, item.index, total)
				}

				resultsMu.Lock()
				results[item.index] = result
				resultsMu.Unlock()
			}
			logger.Debug("worker %s: queue drained", w.DeviceID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	suite.Scenarios = results
	suite.Duration = time.Since(suite.StartTime)
	suite.ComputeSummary()
	return suite, nil
}
