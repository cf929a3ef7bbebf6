// Package bench fires the same request repeatedly through the lifecycle
// controller and aggregates latencies into HDR histograms.
package bench

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	spidex "github.com/wesleyorama2/spidex/http"
	"github.com/wesleyorama2/spidex/internal/logger"
)

const (
	failureCanceled  = "canceled"
	failureTransport = "transport"
)

// ErrInvalidPlan indicates a plan without requests or workers.
var ErrInvalidPlan = errors.New("invalid benchmark plan")

// Plan describes a benchmark run.
type Plan struct {
	Method      string
	URL         string
	Options     *spidex.Options
	Requests    int
	Concurrency int
	// Rate caps request starts per second across all workers. Zero means unpaced.
	Rate float64
}

// Runner executes plans with a client.
type Runner struct {
	client *spidex.Client
}

// NewRunner creates a runner. A nil client selects spidex.DefaultClient.
func NewRunner(client *spidex.Client) *Runner {
	if client == nil {
		client = spidex.DefaultClient()
	}

	return &Runner{client: client}
}

// Run issues plan.Requests requests from plan.Concurrency workers and waits for
// all of them. Cancelling ctx stops handing out new requests; requests already
// in flight fail with the cancellation.
func (r *Runner) Run(ctx context.Context, plan Plan) (*Summary, error) {
	if plan.Requests <= 0 || plan.Concurrency <= 0 || plan.Rate < 0 {
		return nil, fmt.Errorf("%w: requests=%d concurrency=%d rate=%g",
			ErrInvalidPlan, plan.Requests, plan.Concurrency, plan.Rate)
	}

	// Fail fast on build errors instead of recording them once per request.
	if _, err := spidex.BuildRequest(plan.Method, plan.URL, plan.Options); err != nil {
		return nil, err
	}

	workers := min(plan.Concurrency, plan.Requests)
	recorder := NewRecorder()
	jobs := make(chan struct{})

	logger.DebugKV(ctx, "benchmark started", "url", plan.URL, "requests", plan.Requests, "workers", workers)

	// Burst 1 spaces starts evenly, even after the dispatcher has been idle.
	var limiter *rate.Limiter
	if plan.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(plan.Rate), 1)
	}

	start := time.Now()

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range jobs {
				r.fire(ctx, plan, recorder)
			}
		}()
	}

dispatch:
	for range plan.Requests {
		if limiter != nil && limiter.Wait(ctx) != nil {
			break dispatch
		}

		select {
		case jobs <- struct{}{}:
		case <-ctx.Done():
			break dispatch
		}
	}

	close(jobs)
	wg.Wait()

	summary := recorder.Summary(time.Since(start))

	logger.DebugKV(ctx, "benchmark finished", "total", summary.Total, "failed", summary.Failed)

	return summary, nil
}

func (r *Runner) fire(ctx context.Context, plan Plan, recorder *Recorder) {
	start := time.Now()

	err := r.client.Method(ctx, plan.Method, plan.URL, plan.Options, func(resp *spidex.Response) {
		recorder.RecordSuccess(time.Since(start), resp.StatusCode, len(resp.Content))
	}).Wait()
	if err == nil {
		return
	}

	kind := FailureKind(err)
	if kind == failureTransport && ctx.Err() != nil {
		kind = failureCanceled
	}

	recorder.RecordFailure(kind)
}

// FailureKind names the category of a request error.
func FailureKind(err error) string {
	var timeoutErr *spidex.TimeoutError

	switch {
	case errors.As(err, &timeoutErr):
		return strings.ReplaceAll(timeoutErr.Phase.String(), " ", "_")
	case errors.Is(err, context.Canceled):
		return failureCanceled
	default:
		return failureTransport
	}
}
