package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fewnexus/nexus/pkg/config"
	"github.com/fewnexus/nexus/pkg/engine"
	"github.com/fewnexus/nexus/pkg/scenario"
	"github.com/fewnexus/nexus/pkg/telemetry"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

// defaultScenario names the parameter set used when no file is given.
const defaultScenario = "default"

// app bundles what a command needs: configuration, telemetry, the engine
// and a scenario loader.
type app struct {
	cfg    *config.Config
	tel    *telemetry.Telemetry
	engine *engine.Engine
	loader *scenario.Loader
	out    io.Writer
}

// newApp loads the configuration and builds the engine for one command.
// Each configure func adjusts the loaded configuration before the engine is
// built. The caller must call close.
func newApp(cmd *cobra.Command, configure ...func(*config.Config)) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	for _, fn := range configure {
		fn(cfg)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Address = metricsAddr
	}

	tel, err := telemetry.NewTelemetry(cfg.Telemetry(buildVersion))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	engCfg, err := engine.ConfigFrom(cfg)
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, err
	}
	eng, err := engine.New(engCfg, tel)
	if err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, err
	}

	if err := tel.StartMetricsServer(); err != nil {
		_ = tel.Shutdown(context.Background())
		return nil, err
	}

	loader := scenario.NewLoader(*tel.Logger.Zerolog(), scenario.Options{
		Debounce:      cfg.Scenarios.Debounce,
		ScriptTimeout: cfg.Scenarios.ScriptTimeout,
		Schema:        engCfg.Schema,
		Recorder:      tel.Metrics,
	})

	cmd.SetContext(tel.WithContext(cmd.Context()))

	return &app{
		cfg:    cfg,
		tel:    tel,
		engine: eng,
		loader: loader,
		out:    cmd.OutOrStdout(),
	}, nil
}

// close flushes traces and stops the metrics server.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.tel.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Telemetry shutdown failed")
	}
}

// scenarios loads the scenarios of the given files, or a single empty
// default scenario when no file is given. --set overrides apply to every
// scenario.
func (a *app) scenarios(ctx context.Context, files []string, sets []string) ([]scenario.Scenario, error) {
	overrides, err := parseSets(sets)
	if err != nil {
		return nil, err
	}

	var loaded []scenario.Scenario
	if len(files) == 0 {
		loaded = []scenario.Scenario{{Name: defaultScenario, Parameters: map[string]any{}}}
	} else {
		loaded, err = a.loader.LoadFromPaths(ctx, files)
		if err != nil {
			return nil, err
		}
		if len(loaded) == 0 {
			return nil, fmt.Errorf("no scenarios found in %s", strings.Join(files, ", "))
		}
	}

	out := make([]scenario.Scenario, len(loaded))
	for i, s := range loaded {
		s.Parameters = s.Merge(overrides)
		out[i] = s
	}
	return out, nil
}

// parseSets parses repeated key=value flags. Numeric values become floats;
// anything else is kept as a string for validation to report.
func parseSets(sets []string) (map[string]any, error) {
	out := make(map[string]any, len(sets))
	for _, kv := range sets {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: expected key=value", kv)
		}
		value = strings.TrimSpace(value)
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			out[key] = f
		} else {
			out[key] = value
		}
	}
	return out, nil
}

// namedResult pairs a scenario with its result.
type namedResult struct {
	Scenario   string         `json:"scenario"`
	Parameters map[string]any `json:"parameters"`
	Results    any            `json:"results"`
}

// eachScenario runs fn for every scenario. A single scenario prints its bare
// result; several print a list of named results.
func (a *app) eachScenario(scenarios []scenario.Scenario, fn func(s scenario.Scenario) (any, error)) error {
	if len(scenarios) == 1 {
		res, err := fn(scenarios[0])
		if err != nil {
			return err
		}
		return a.print(res)
	}

	results := make([]namedResult, 0, len(scenarios))
	for _, s := range scenarios {
		res, err := fn(s)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		results = append(results, namedResult{
			Scenario:   s.Name,
			Parameters: s.Parameters,
			Results:    res,
		})
	}
	return a.print(results)
}

// print writes v as indented JSON.
func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
