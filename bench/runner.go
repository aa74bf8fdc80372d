package bench

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/DrJDen31/tierann/index"
	"github.com/DrJDen31/tierann/metrics"
	"github.com/DrJDen31/tierann/model"
	"github.com/DrJDen31/tierann/persistence"
)

// Options configure a Runner.
type Options struct {
	// Concurrency is the number of in-flight queries. Defaults to GOMAXPROCS.
	Concurrency int
	// TargetQPS paces query admission when > 0; otherwise queries run as
	// fast as the index allows.
	TargetQPS float64
	// Logger receives run progress. Nil disables logging.
	Logger *slog.Logger
}

// DefaultOptions returns the default runner configuration.
func DefaultOptions() Options {
	return Options{}
}

// Runner executes query workloads against an index.
type Runner struct {
	opts Options
}

// NewRunner creates a Runner.
func NewRunner(optFns ...func(o *Options)) *Runner {
	opts := DefaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Runner{opts: opts}
}

// Report is the JSON-serializable outcome of one run.
type Report struct {
	Name        string  `json:"name"`
	NumQueries  int     `json:"num_queries"`
	K           int     `json:"k"`
	EFSearch    int     `json:"ef_search"`
	Concurrency int     `json:"concurrency"`
	TargetQPS   float64 `json:"target_qps,omitempty"`

	RecallAtK    float64 `json:"recall_at_k"`
	PrecisionAtK float64 `json:"precision_at_k"`
	QPS          float64 `json:"qps"`
	WallTimeS    float64 `json:"wall_time_s"`

	Latency metrics.LatencySummary `json:"latency"`
}

// Run executes the queries against idx and aggregates quality and latency.
// Queries without ground truth are searched but excluded from recall.
func (r *Runner) Run(ctx context.Context, name string, idx index.Index, queries []model.Query, k, efSearch int) (Report, error) {
	report := Report{
		Name:        name,
		NumQueries:  len(queries),
		K:           k,
		EFSearch:    efSearch,
		Concurrency: r.opts.Concurrency,
		TargetQPS:   r.opts.TargetQPS,
	}
	if report.Concurrency <= 0 {
		report.Concurrency = runtime.GOMAXPROCS(0)
	}
	if len(queries) == 0 {
		return report, nil
	}

	var limiter *rate.Limiter
	if r.opts.TargetQPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.opts.TargetQPS), 1)
	}

	latenciesUs := make([]float64, len(queries))
	retrieved := make([][]model.VectorID, len(queries))

	var waitErr error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(report.Concurrency)

	start := time.Now()
	for i := range queries {
		if limiter != nil {
			if err := limiter.Wait(gctx); err != nil {
				waitErr = err
				break
			}
		}

		g.Go(func() error {
			q := queries[i]
			qStart := time.Now()
			results, err := idx.Search(q.Values, k, efSearch)
			if err != nil {
				return err
			}
			latenciesUs[i] = float64(time.Since(qStart)) / float64(time.Microsecond)

			ids := make([]model.VectorID, len(results))
			for j, res := range results {
				ids[j] = res.ID
			}
			retrieved[i] = ids
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}
	if waitErr != nil {
		return report, waitErr
	}

	report.WallTimeS = time.Since(start).Seconds()
	if report.WallTimeS > 0 {
		report.QPS = float64(len(queries)) / report.WallTimeS
	}
	report.Latency = metrics.Percentiles(latenciesUs)

	var recall, precision float64
	withTruth := 0
	for i, q := range queries {
		if len(q.TrueNeighbors) == 0 {
			continue
		}
		recall += metrics.RecallAtK(q.TrueNeighbors, retrieved[i], k)
		precision += metrics.PrecisionAtK(q.TrueNeighbors, retrieved[i], k)
		withTruth++
	}
	if withTruth > 0 {
		report.RecallAtK = recall / float64(withTruth)
		report.PrecisionAtK = precision / float64(withTruth)
	}

	if r.opts.Logger != nil {
		r.opts.Logger.Info("run complete",
			"name", name,
			"queries", len(queries),
			"recall_at_k", report.RecallAtK,
			"qps", report.QPS,
			"p50_us", report.Latency.P50)
	}
	return report, nil
}

// WriteJSON writes reports as an indented JSON array, atomically.
func WriteJSON(path string, reports []Report) error {
	return persistence.SaveToFile(path, func(w io.Writer) error {
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return err
		}
		data = append(data, '\n')
		_, err = w.Write(data)
		return err
	})
}
