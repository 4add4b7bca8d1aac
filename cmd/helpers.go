package main

import (
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sqp-cli/internal/categorize"
	"github.com/sells-group/sqp-cli/internal/ingest"
	"github.com/sells-group/sqp-cli/internal/pipeline"
	"github.com/sells-group/sqp-cli/internal/schema"
	"github.com/sells-group/sqp-cli/pkg/anthropic"
)

// readInputFiles loads the payloads for the given paths.
func readInputFiles(paths []string) ([]ingest.File, error) {
	files := make([]ingest.File, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, eris.Wrapf(err, "read input file %s", p)
		}
		files = append(files, ingest.File{Name: p, Data: data})
	}
	return files, nil
}

// newSession builds an empty analysis session from the loaded config.
func newSession() (*pipeline.Session, error) {
	rules, err := schema.LoadRules(cfg.Schema.RulesFile)
	if err != nil {
		return nil, err
	}
	return pipeline.New(rules, cfg.Categorize.RetrySentinel), nil
}

// newScheduler wires the Anthropic-backed batch executor into a scheduler
// configured from the loaded config.
func newScheduler() (*categorize.Scheduler, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic API key is required (SQP_ANTHROPIC_KEY)")
	}

	client := anthropic.NewClient(cfg.Anthropic.Key)
	exec := categorize.NewExecutor(client, cfg.Anthropic.Model, cfg.Anthropic.FallbackModel, cfg.Anthropic.MaxTokens)

	return categorize.NewScheduler(
		exec,
		cfg.Categorize.BatchSize,
		cfg.Categorize.Parallel,
		cfg.Categorize.Workers,
		time.Duration(cfg.Categorize.BatchDelayMS)*time.Millisecond,
	), nil
}

// writeFile streams fn into path, creating or truncating it.
func writeFile(path string, fn func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	if err := fn(f); err != nil {
		return err
	}
	return eris.Wrapf(f.Close(), "close %s", path)
}
