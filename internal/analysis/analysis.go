package analysis

import (
	"context"
	"path/filepath"

	"github.com/gehuybre/embuild-analyses/internal/pipeline"
)

// Env locates the source data and output directories for a run. Layout
// follows the analysis repo convention: data/<analysis>/, results/<analysis>/
// and an optional public/data/<analysis>/ mirror for the static site.
type Env struct {
	DataDir    string
	ResultsDir string
	PublicDir  string
	SharedDir  string // shared lookup data (NIS/REFNIS codes)
}

// Data returns the path of a source file of an analysis
func (e Env) Data(analysis string, parts ...string) string {
	return filepath.Join(append([]string{e.DataDir, analysis}, parts...)...)
}

// Shared returns the path of a shared lookup file
func (e Env) Shared(parts ...string) string {
	return filepath.Join(append([]string{e.SharedDir}, parts...)...)
}

// Exporter returns the JSON exporter for an analysis, mirroring to the
// public data directory when one is configured
func (e Env) Exporter(analysis string) *pipeline.Exporter {
	exp := &pipeline.Exporter{ResultsDir: filepath.Join(e.ResultsDir, analysis)}
	if e.PublicDir != "" {
		exp.PublicDir = filepath.Join(e.PublicDir, analysis)
	}
	return exp
}

// Analysis is one independent source-to-JSON transformation. Run reads the
// analysis' source files, aggregates and writes every output series, and
// reports data-quality counters. All state is local to one invocation.
type Analysis interface {
	Name() string
	Description() string
	Run(ctx context.Context, env Env) (pipeline.Stats, error)
}
