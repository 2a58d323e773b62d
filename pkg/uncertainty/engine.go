package uncertainty

import (
	"context"
	"math/rand/v2"
	"runtime"
	"sort"

	"github.com/fewnexus/nexus/pkg/model"
	"github.com/fewnexus/nexus/pkg/params"
	"golang.org/x/sync/errgroup"
)

// DefaultSimulations is the simulation count used when none is configured.
const DefaultSimulations = 100

// DefaultNoise is the standard deviation of the multiplicative noise.
const DefaultNoise = 0.1

// Percentiles reported in a band.
const (
	lowPercentile  = 10
	midPercentile  = 50
	highPercentile = 90
	bandPlaces     = 2
)

// Sampler evaluates the base metrics of a parameter set.
// *model.Calculator implements it.
type Sampler interface {
	Schema() *params.Schema
	CalculateBase(p params.Set) (model.Base, error)
}

// Recorder receives sample accounting for each quantification.
type Recorder interface {
	RecordSimulations(total, dropped int)
}

// Options controls a single quantification.
type Options struct {
	// Simulations is the number of Monte Carlo iterations. Zero or negative
	// yields empty bands.
	Simulations int

	// Seed selects the random streams. Equal seeds give equal bands.
	Seed uint64
}

// Engine runs Monte Carlo quantifications. It holds no per-call state and is
// safe for concurrent use.
type Engine struct {
	sampler  Sampler
	workers  int
	noise    float64
	recorder Recorder
}

// NewEngine creates an uncertainty engine. workers <= 0 selects GOMAXPROCS;
// a nil recorder discards sample accounting.
func NewEngine(sampler Sampler, workers int, recorder Recorder) *Engine {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{
		sampler:  sampler,
		workers:  workers,
		noise:    DefaultNoise,
		recorder: recorder,
	}
}

// Quantify runs opts.Simulations perturbed evaluations of p and returns the
// percentile band of every tracked metric with at least one surviving
// sample. It returns an error only when ctx is cancelled.
func (e *Engine) Quantify(ctx context.Context, p params.Set, opts Options) (model.Bands, error) {
	n := opts.Simulations
	if n <= 0 {
		return model.Bands{}, nil
	}

	schema := e.sampler.Schema()
	base := p.WithDefaults(schema)

	// Draw order must not depend on map iteration.
	names := make([]string, 0, len(base))
	for name := range base {
		names = append(names, name)
	}
	sort.Strings(names)

	samples := make([]*model.Base, n)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			rng := rand.New(rand.NewPCG(opts.Seed, uint64(i)))
			varied := make(params.Set, len(base))
			for _, name := range names {
				factor := 1 + rng.NormFloat64()*e.noise
				varied[name] = schema.Clamp(name, base[name]*factor)
			}

			b, err := e.sampler.CalculateBase(varied)
			if err != nil {
				return nil
			}
			samples[i] = &b
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	survivors := make([]model.Base, 0, n)
	for _, s := range samples {
		if s != nil {
			survivors = append(survivors, *s)
		}
	}

	if e.recorder != nil {
		e.recorder.RecordSimulations(n, n-len(survivors))
	}

	return Summarize(survivors), nil
}

// Summarize computes the percentile band of every tracked metric over the
// given samples. Metrics without samples are omitted.
func Summarize(samples []model.Base) model.Bands {
	bands := make(model.Bands)
	for _, metric := range model.TrackedMetrics {
		values := make([]float64, 0, len(samples))
		for _, s := range samples {
			if v, ok := s.Metric(metric); ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}
		bands[metric] = model.Band{
			P10: model.Round(Percentile(values, lowPercentile), bandPlaces),
			P50: model.Round(Percentile(values, midPercentile), bandPlaces),
			P90: model.Round(Percentile(values, highPercentile), bandPlaces),
		}
	}
	return bands
}
