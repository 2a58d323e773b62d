package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math/rand/v2"

	"github.com/fewnexus/nexus/pkg/compare"
	"github.com/fewnexus/nexus/pkg/config"
	"github.com/fewnexus/nexus/pkg/model"
	"github.com/fewnexus/nexus/pkg/params"
	"github.com/fewnexus/nexus/pkg/policy"
	"github.com/fewnexus/nexus/pkg/projection"
	"github.com/fewnexus/nexus/pkg/sensitivity"
	"github.com/fewnexus/nexus/pkg/telemetry"
	"github.com/fewnexus/nexus/pkg/uncertainty"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Operation names used for spans, logs and metrics.
const (
	OpCalculate   = "calculate"
	OpValidate    = "validate"
	OpSensitivity = "sensitivity"
	OpProject     = "project"
	OpCompare     = "compare"
	OpCheck       = "check"
)

// Config holds what the engine needs from the outside. Nothing is read from
// the environment.
type Config struct {
	// Schema declares the parameters. Nil selects params.DefaultSchema.
	Schema *params.Schema

	// Simulations is the default Monte Carlo iteration count.
	Simulations int

	// Seed fixes the random streams. Nil draws a fresh seed per run.
	Seed *uint64

	// Workers bounds the evaluation pools. Zero selects GOMAXPROCS.
	Workers int

	// PolicyPaths lists guardrail files or directories loaded next to the
	// built-in policies.
	PolicyPaths []string

	// DisabledPolicies names policies that are not evaluated.
	DisabledPolicies []string
}

// ConfigFrom derives an engine configuration from the runtime
// configuration.
func ConfigFrom(c *config.Config) (Config, error) {
	schema, err := c.Schema()
	if err != nil {
		return Config{}, err
	}
	return Config{
		Schema:      schema,
		Simulations: c.Simulations,
		Seed:        c.Seed,
		Workers:     c.Workers,

		PolicyPaths:      c.Policies.Paths,
		DisabledPolicies: c.Policies.Disabled,
	}, nil
}

// CalcOptions tunes a single calculation.
type CalcOptions struct {
	// Simulations overrides the configured count when positive. Negative
	// skips uncertainty quantification.
	Simulations int

	// Seed overrides the configured seed.
	Seed *uint64
}

// Comparison is the result of comparing several scenarios.
type Comparison struct {
	Results    []model.Outcome `json:"results"`
	Comparison compare.Report  `json:"comparison"`
}

// CheckResult is a calculated outcome with its guardrail verdict.
type CheckResult struct {
	Scenario string         `json:"scenario"`
	Outcome  model.Outcome  `json:"results"`
	Policy   *policy.Result `json:"policy"`
}

// Engine runs the nexus operations. It is built once and is safe for
// concurrent use.
type Engine struct {
	cfg         Config
	calc        *model.Calculator
	uncertainty *uncertainty.Engine
	analyzer    *sensitivity.Analyzer
	projector   *projection.Projector
	policies    *policy.Engine
	tel         *telemetry.Telemetry
}

// New creates an engine. A nil tel disables logging and tracing.
func New(cfg Config, tel *telemetry.Telemetry) (*Engine, error) {
	if cfg.Simulations < 0 {
		return nil, fmt.Errorf("simulations must not be negative, got %d", cfg.Simulations)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	if cfg.Schema == nil {
		cfg.Schema = params.DefaultSchema()
	}
	if tel == nil {
		tel = telemetry.NewNoop()
	}

	policies, err := newPolicyEngine(cfg, tel)
	if err != nil {
		return nil, err
	}

	calc := model.NewCalculator(cfg.Schema)

	return &Engine{
		cfg:         cfg,
		calc:        calc,
		uncertainty: uncertainty.NewEngine(calc, cfg.Workers, tel.Metrics),
		analyzer:    sensitivity.NewAnalyzer(calc, cfg.Workers),
		projector:   projection.NewProjector(calc),
		policies:    policies,
		tel:         tel,
	}, nil
}

// newPolicyEngine builds the guardrail engine with the configured policy
// files loaded and the configured policies disabled.
func newPolicyEngine(cfg Config, tel *telemetry.Telemetry) (*policy.Engine, error) {
	policies, err := policy.NewEngine(*tel.Logger.Zerolog())
	if err != nil {
		return nil, err
	}
	if len(cfg.PolicyPaths) > 0 {
		if err := policies.LoadPolicies(context.Background(), cfg.PolicyPaths); err != nil {
			return nil, err
		}
	}
	for _, name := range cfg.DisabledPolicies {
		if err := policies.DisablePolicy(name); err != nil {
			return nil, err
		}
	}
	return policies, nil
}

// run executes fn as an instrumented operation with a fresh run ID.
func (e *Engine) run(ctx context.Context, op string, fn func(ctx context.Context, log *telemetry.Logger) error, attrs ...attribute.KeyValue) error {
	if telemetry.FromTelemetryContext(ctx) == nil {
		ctx = e.tel.WithContext(ctx)
	}

	runID := uuid.NewString()
	ic := telemetry.StartOperation(ctx, op, attrs...).WithRunID(runID)
	ic.Logger.Debug("Operation started")

	err := fn(ic.Ctx, ic.Logger)
	if err == nil {
		ic.Logger.WithField("duration_ms", ic.Timer.Duration().Milliseconds()).Debug("Operation completed")
		ic.End(telemetry.StatusSucceeded, nil)
		return nil
	}

	engErr := newEngineError(op, runID, err)
	switch engErr.Class {
	case ErrorClassInvalid:
		e.tel.Metrics.RecordValidationFailure(op)
		ic.Logger.WithError(err).Info("Operation rejected input")
	case ErrorClassCancelled:
		ic.Logger.WithError(err).Warn("Operation cancelled")
	default:
		ic.Logger.WithError(err).Error("Operation failed")
	}
	ic.End(engErr.Class.status(), engErr)
	return engErr
}

// Calculate validates raw, evaluates the model and attaches uncertainty
// bands.
func (e *Engine) Calculate(ctx context.Context, raw map[string]any, opts CalcOptions) (*model.Outcome, error) {
	simulations, seed := e.resolve(opts)

	var out model.Outcome
	err := e.run(ctx, OpCalculate, func(ctx context.Context, log *telemetry.Logger) error {
		var err error
		out, _, err = e.calculate(ctx, log, raw, simulations, seed)
		return err
	}, telemetry.AttrSimulations.Int(simulations), telemetry.AttrSeed.String(fmt.Sprint(seed)))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Check calculates raw like Calculate and evaluates the guardrail policies
// against the outcome. Violations are part of the result, not an error.
func (e *Engine) Check(ctx context.Context, scenario string, raw map[string]any, opts CalcOptions) (*CheckResult, error) {
	simulations, seed := e.resolve(opts)

	var result *CheckResult
	err := e.run(ctx, OpCheck, func(ctx context.Context, log *telemetry.Logger) error {
		log = log.WithScenario(scenario)
		out, p, err := e.calculate(ctx, log, raw, simulations, seed)
		if err != nil {
			return err
		}

		verdict, err := e.policies.Evaluate(ctx, policy.NewInput(scenario, p, out))
		if err != nil {
			return err
		}
		for _, v := range verdict.Violations {
			e.tel.Metrics.RecordPolicyViolation(v.Policy, string(v.Severity))
		}

		log.WithFields(map[string]interface{}{
			"violations": len(verdict.Violations),
			"allowed":    verdict.Allowed,
		}).Debug("Guardrails evaluated")

		result = &CheckResult{Scenario: scenario, Outcome: out, Policy: verdict}
		return nil
	}, telemetry.AttrScenario.String(scenario), telemetry.AttrSimulations.Int(simulations), telemetry.AttrSeed.String(fmt.Sprint(seed)))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Policies returns the guardrail policies sorted by name.
func (e *Engine) Policies() []policy.Policy {
	return e.policies.ListPolicies()
}

// resolve applies the configured defaults to opts.
func (e *Engine) resolve(opts CalcOptions) (int, uint64) {
	simulations := e.cfg.Simulations
	if opts.Simulations != 0 {
		simulations = opts.Simulations
	}
	return simulations, e.seed(opts.Seed)
}

// calculate normalizes raw, evaluates the model and quantifies uncertainty
// when simulations is positive.
func (e *Engine) calculate(ctx context.Context, log *telemetry.Logger, raw map[string]any, simulations int, seed uint64) (model.Outcome, params.Set, error) {
	p, err := e.cfg.Schema.Normalize(raw)
	if err != nil {
		return model.Outcome{}, nil, err
	}

	outcome, err := e.calc.Calculate(p)
	if err != nil {
		return model.Outcome{}, nil, err
	}

	bands := model.Bands{}
	if simulations > 0 {
		bands, err = e.uncertainty.Quantify(ctx, p, uncertainty.Options{
			Simulations: simulations,
			Seed:        seed,
		})
		if err != nil {
			return model.Outcome{}, nil, err
		}
		log.WithFields(map[string]interface{}{
			"simulations": simulations,
			"seed":        seed,
			"metrics":     len(bands),
		}).Debug("Uncertainty quantified")
	}

	return outcome.WithUncertainties(bands), p, nil
}

// seed resolves the seed of one run: the explicit one, the configured one,
// or a fresh random one.
func (e *Engine) seed(explicit *uint64) uint64 {
	switch {
	case explicit != nil:
		return *explicit
	case e.cfg.Seed != nil:
		return *e.cfg.Seed
	default:
		return rand.Uint64()
	}
}

// Validate checks raw against the schema and returns every violation.
func (e *Engine) Validate(ctx context.Context, raw map[string]any) (bool, []string) {
	var (
		valid bool
		errs  []string
	)
	_ = e.run(ctx, OpValidate, func(ctx context.Context, log *telemetry.Logger) error {
		valid, errs = e.cfg.Schema.Validate(raw)
		if !valid {
			e.tel.Metrics.RecordValidationFailure(OpValidate)
			log.WithField("violations", len(errs)).Debug("Parameters invalid")
		}
		return nil
	})
	return valid, errs
}

// Sensitivity sweeps one parameter, or every parameter when parameter is
// empty. Bands are attached to the baseline only when opts.Simulations is
// positive; the configured default does not apply.
func (e *Engine) Sensitivity(ctx context.Context, raw map[string]any, parameter string, opts CalcOptions) (*sensitivity.Report, error) {
	var report *sensitivity.Report
	err := e.run(ctx, OpSensitivity, func(ctx context.Context, log *telemetry.Logger) error {
		p, err := e.cfg.Schema.Normalize(raw)
		if err != nil {
			return err
		}

		report, err = e.analyzer.Analyze(ctx, p, parameter)
		if err != nil {
			return err
		}

		bands, err := e.explicitBands(ctx, log, report.Baseline.Parameters, opts)
		if err != nil {
			return err
		}
		report.Baseline.Results = report.Baseline.Results.WithUncertainties(bands)

		log.WithField("parameters", len(report.Analysis)).Debug("Sensitivity analyzed")
		return nil
	}, telemetry.AttrParameter.String(parameter), telemetry.AttrSimulations.Int(opts.Simulations))
	if err != nil {
		return nil, err
	}
	return report, nil
}

// Project evaluates raw for every year of the horizon. Year 0 carries bands
// when opts.Simulations is positive; later years, whose compounded growth
// leaves the sampled range, never do.
func (e *Engine) Project(ctx context.Context, raw map[string]any, years int, opts CalcOptions) (*projection.Projection, error) {
	var proj *projection.Projection
	err := e.run(ctx, OpProject, func(ctx context.Context, log *telemetry.Logger) error {
		if err := projection.ValidateYears(years); err != nil {
			return err
		}

		p, err := e.cfg.Schema.Normalize(raw)
		if err != nil {
			return err
		}

		proj, err = e.projector.Project(ctx, p, years)
		if err != nil {
			return err
		}

		present := maps.Clone(proj.Parameters)
		present[params.PopulationGrowth] = 1
		bands, err := e.explicitBands(ctx, log, present, opts)
		if err != nil {
			return err
		}
		proj.Projections[0].Results = proj.Projections[0].Results.WithUncertainties(bands)
		return nil
	}, telemetry.AttrYears.Int(years), telemetry.AttrSimulations.Int(opts.Simulations))
	if err != nil {
		return nil, err
	}
	return proj, nil
}

// explicitBands quantifies p when opts.Simulations is positive and returns
// empty bands otherwise.
func (e *Engine) explicitBands(ctx context.Context, log *telemetry.Logger, p params.Set, opts CalcOptions) (model.Bands, error) {
	if opts.Simulations <= 0 {
		return model.Bands{}, nil
	}
	seed := e.seed(opts.Seed)
	bands, err := e.uncertainty.Quantify(ctx, p, uncertainty.Options{
		Simulations: opts.Simulations,
		Seed:        seed,
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(map[string]interface{}{
		"simulations": opts.Simulations,
		"seed":        seed,
	}).Debug("Uncertainty quantified")
	return bands, nil
}

// Compare calculates every scenario without uncertainty bands and compares
// the results. A single invalid scenario fails the comparison, with its
// index in the message.
func (e *Engine) Compare(ctx context.Context, raws []map[string]any) (*Comparison, error) {
	var result *Comparison
	err := e.run(ctx, OpCompare, func(ctx context.Context, log *telemetry.Logger) error {
		results := make([]model.Outcome, 0, len(raws))
		var violations []string

		for i, raw := range raws {
			if err := ctx.Err(); err != nil {
				return err
			}

			p, err := e.cfg.Schema.Normalize(raw)
			if err == nil {
				var outcome model.Outcome
				outcome, err = e.calc.Calculate(p)
				if err == nil {
					results = append(results, outcome.WithUncertainties(model.Bands{}))
					continue
				}
			}

			var v *params.ValidationError
			if errors.As(err, &v) {
				for _, msg := range v.Errors {
					violations = append(violations, fmt.Sprintf("scenario %d: %s", i, msg))
				}
				continue
			}
			return err
		}

		if len(violations) > 0 {
			return params.NewValidationError(violations...)
		}

		result = &Comparison{
			Results:    results,
			Comparison: compare.Compare(compare.FromOutcomes(results)),
		}
		log.WithField("scenarios", len(results)).Debug("Scenarios compared")
		return nil
	}, telemetry.AttrScenarios.Int(len(raws)))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CompareResults compares already calculated result sets.
func (e *Engine) CompareResults(results []compare.Metrics) compare.Report {
	return compare.Compare(results)
}

// Parameters returns the parameter declarations keyed by name.
func (e *Engine) Parameters() map[string]params.Constraint {
	return e.cfg.Schema.All()
}

// ParameterNames returns the parameter names in declaration order.
func (e *Engine) ParameterNames() []string {
	return e.cfg.Schema.Names()
}

// Info returns the model card.
func (e *Engine) Info() model.Info {
	return model.ModelInfo()
}
