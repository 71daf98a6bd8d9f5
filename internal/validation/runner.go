// Package validation executes an expectation suite against a loaded dataset
// and produces an ordered, self-contained Result.
//
// Every expectation is evaluated; a failing or unanswerable check never stops
// the others. The only error Run returns is context cancellation.
package validation

import (
	"context"
	"errors"
	"time"

	"dqcheck/internal/dataset"
	"dqcheck/internal/expectation"
	"dqcheck/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options configures a Runner.
type Options struct {
	// Workers > 1 evaluates checks concurrently. Results keep suite order.
	Workers int
	// PartialUnexpectedLimit caps listed null row indexes. 0 means the default.
	PartialUnexpectedLimit int
}

// Runner evaluates suites. It holds no per-run state and may be reused.
type Runner struct {
	opt Options
	log *zap.Logger
	now func() time.Time
}

// NewRunner returns a Runner. A nil logger disables logging.
func NewRunner(opt Options, log *zap.Logger) *Runner {
	if opt.Workers < 1 {
		opt.Workers = 1
	}
	if opt.PartialUnexpectedLimit <= 0 {
		opt.PartialUnexpectedLimit = DefaultPartialUnexpectedLimit
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{opt: opt, log: log, now: time.Now}
}

var errNilInput = errors.New("validation: dataset and suite are required")

// Run evaluates every expectation in suite against ds.
func (r *Runner) Run(ctx context.Context, ds *dataset.Dataset, suite *expectation.Suite, format Format) (*Result, error) {
	if ds == nil || suite == nil {
		return nil, errNilInput
	}
	if format == "" {
		format = FormatSummary
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		RunID:     uuid.NewString(),
		Suite:     suite.Name(),
		Format:    format,
		StartedAt: r.now().UTC(),
		Dataset: DatasetInfo{
			Location:    ds.Location(),
			Fingerprint: ds.Fingerprint(),
			Rows:        ds.NumRows(),
			Columns:     ds.NumColumns(),
		},
	}

	exps := suite.Expectations()
	results := make([]CheckResult, len(exps))
	opt := evalOptions{format: format, partialLimit: r.opt.PartialUnexpectedLimit}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opt.Workers)
	for i, e := range exps {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = evaluate(ds, i, e, opt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.log.Warn("validation canceled", zap.String("suite", res.Suite), zap.Error(err))
		return nil, err
	}

	res.Results = results
	res.Statistics = computeStatistics(results)
	res.Success = res.Statistics.Unsuccessful == 0
	res.FinishedAt = r.now().UTC()

	for _, c := range results {
		metrics.RecordCheck(res.Suite, string(c.Type), c.Success)
		if !c.Success {
			r.log.Info("expectation failed",
				zap.String("suite", res.Suite),
				zap.Int("index", c.Index),
				zap.String("expectation", c.Description),
				zap.String("reason", string(c.Reason)),
				zap.String("message", c.Message),
			)
		}
	}
	metrics.RecordRun(res.Suite, res.Success)
	metrics.RecordDatasetRows(res.Suite, res.Dataset.Rows)

	r.log.Info("validation finished",
		zap.String("run_id", res.RunID),
		zap.String("suite", res.Suite),
		zap.Bool("success", res.Success),
		zap.Int("evaluated", res.Statistics.Evaluated),
		zap.Int("unsuccessful", res.Statistics.Unsuccessful),
		zap.Duration("duration", res.Duration()),
	)
	return res, nil
}
