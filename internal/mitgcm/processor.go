// Package mitgcm exposes the MITgcm baroclinic gyre tutorial
// configuration as an executable process: rewrite the model's input
// namelist, regenerate the binary forcing files, run the compiled model
// and stage the glued NetCDF results for download.
package mitgcm

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/aquainfra/mitgcm-ogc-backend/config"
	"github.com/aquainfra/mitgcm-ogc-backend/internal/mitgcm/gendata"
	"github.com/aquainfra/mitgcm-ogc-backend/internal/mitgcm/gluemnc"
	"github.com/aquainfra/mitgcm-ogc-backend/internal/mitgcm/namelist"
	"github.com/aquainfra/mitgcm-ogc-backend/internal/mitgcm/runner"
	"github.com/aquainfra/mitgcm-ogc-backend/internal/ogcprocesses/domain"
	"github.com/aquainfra/mitgcm-ogc-backend/internal/ogcprocesses/process"
	"github.com/aquainfra/mitgcm-ogc-backend/internal/results"
)

// ProcessID is the identifier the processor registers under.
const ProcessID = "mitgcm-baroclinic-gyre"

// Input defaults, matching the tutorial's out-of-box "data" namelist.
const (
	defaultEndTime = 12000
	defaultDeltaT  = 1200
	defaultViscAh  = 5000
)

// BaroclinicGyreProcessor runs the baroclinic gyre tutorial model.
type BaroclinicGyreProcessor struct {
	cfg   *config.ProcessConfig
	store results.Store

	// The model shares one run directory; runs must not interleave.
	mu sync.Mutex
}

// NewBaroclinicGyreProcessor creates the processor.
func NewBaroclinicGyreProcessor(cfg *config.ProcessConfig, store results.Store) *BaroclinicGyreProcessor {
	return &BaroclinicGyreProcessor{cfg: cfg, store: store}
}

// Describe returns the process metadata document.
func (p *BaroclinicGyreProcessor) Describe() domain.ProcessDescription {
	return domain.ProcessDescription{
		ID:                ProcessID,
		Title:             "MITgcm baroclinic gyre",
		Description:       "Runs the MITgcm baroclinic gyre tutorial configuration with user-supplied timestepping and forcing parameters, and returns links to the glued NetCDF results.",
		Version:           "1.0.0",
		JobControlOptions: []string{"sync-execute", "async-execute"},
		Inputs: map[string]domain.InputDescription{
			"endTime": {Title: "End time", Description: "Model end time in seconds", Type: "integer", Default: strconv.Itoa(defaultEndTime)},
			"deltaT":  {Title: "Time step", Description: "Model time step in seconds", Type: "integer", Default: strconv.Itoa(defaultDeltaT)},
			"viscAh":  {Title: "Horizontal viscosity", Description: "Lateral eddy viscosity in m2/s", Type: "integer", Default: strconv.Itoa(defaultViscAh)},
			"tauMax":  {Title: "Peak wind stress", Description: "Peak zonal wind stress in N/m2", Type: "number", Default: "0.1"},
			"Tmin":    {Title: "Minimum restoring SST", Description: "Restoring temperature at the northern edge in degC", Type: "number", Default: "0.0"},
			"Tmax":    {Title: "Maximum restoring SST", Description: "Restoring temperature at the southern edge in degC", Type: "number", Default: "30.0"},
		},
		Outputs: map[string]domain.OutputMeta{
			"grid":   {Title: "Model grid", Description: "Glued NetCDF grid files of the model run"},
			"state":  {Title: "Model state", Description: "Glued NetCDF state files of the model run"},
			"stdout": {Title: "Model log", Description: "Standard output of the model run"},
		},
	}
}

// Execute runs the full pipeline for one job.
func (p *BaroclinicGyreProcessor) Execute(ctx context.Context, jobID string, inputs map[string]string) (*process.Result, error) {
	params, err := parseInputs(inputs)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// 1. Rewrite the "data" namelist from the pristine backup.
	livePath := filepath.Join(p.cfg.RunDir, "data")
	overrides := map[string]int{
		"endTime": params.endTime,
		"deltaT":  params.deltaT,
		"viscAh":  params.viscAh,
	}
	log.Printf("[mitgcm] job %s: rewriting %s (endTime=%d deltaT=%d viscAh=%d)",
		jobID, livePath, params.endTime, params.deltaT, params.viscAh)
	if err := namelist.RewriteFile(p.cfg.DataBackup, livePath, overrides); err != nil {
		return nil, fmt.Errorf("rewrite namelist: %w", err)
	}

	// 2. Regenerate the binary forcing files.
	gp := gendata.Defaults()
	gp.TauMax = params.tauMax
	gp.Tmin = params.tmin
	gp.Tmax = params.tmax
	log.Printf("[mitgcm] job %s: writing input files to %s (tauMax=%g Tmin=%g Tmax=%g)",
		jobID, p.cfg.InputPath, gp.TauMax, gp.Tmin, gp.Tmax)
	if err := gendata.Write(p.cfg.InputPath, gp); err != nil {
		return nil, fmt.Errorf("generate input files: %w", err)
	}

	// 3. Run the model.
	log.Printf("[mitgcm] job %s: running %s from %s", jobID, runner.DefaultProgram, p.cfg.BuildDir)
	res, runErr := runner.Run(ctx, runner.Options{
		BinaryDir: p.cfg.BuildDir,
		WorkDir:   p.cfg.RunDir,
	})

	outputs := make(map[string]domain.Output)
	var files []domain.OutputFile
	var totalBytes int64

	// 4. Stage stdout regardless of the outcome; the model log is the
	// first thing anyone looks at after a failed run.
	if res != nil {
		name := artifactName("stdout", jobID, ".txt")
		href, size, err := p.store.Put(ctx, name, strings.NewReader(res.Stdout))
		if err != nil {
			log.Printf("[mitgcm] job %s: failed to stage stdout: %v", jobID, err)
		} else {
			outputs["stdout"] = domain.Output{
				Title:       "Model log",
				Description: "Standard output of the model run",
				Href:        href,
			}
			files = append(files, domain.OutputFile{Name: name, Size: size})
			totalBytes += size
		}
	}

	if runErr != nil {
		if res != nil && res.ExitCode > 0 {
			return nil, &process.ExitError{Code: res.ExitCode, Stderr: res.Stderr}
		}
		return nil, runErr
	}
	log.Printf("[mitgcm] job %s: model finished in %s", jobID, res.Duration)

	// 5. Glue the tiled NetCDF output.
	gridTiles, stateTiles, err := collectTiles(p.cfg.MncDir)
	if err != nil {
		return nil, err
	}

	for _, set := range []struct {
		kind  string
		tiles []string
		meta  domain.OutputMeta
	}{
		{"grid", gridTiles, p.Describe().Outputs["grid"]},
		{"state", stateTiles, p.Describe().Outputs["state"]},
	} {
		name := artifactName(set.kind, jobID, ".nc")
		href, size, err := p.glueAndStage(ctx, name, set.tiles)
		if err != nil {
			return nil, fmt.Errorf("glue %s files: %w", set.kind, err)
		}
		outputs[set.kind] = domain.Output{
			Title:       set.meta.Title,
			Description: set.meta.Description,
			Href:        href,
		}
		files = append(files, domain.OutputFile{Name: name, Size: size})
		totalBytes += size
	}

	return &process.Result{
		Message:     "Job finished, here are the links to your results.",
		Outputs:     outputs,
		Files:       files,
		OutputBytes: totalBytes,
	}, nil
}

// glueAndStage glues the tiles into a scratch file and moves the result
// into the store.
func (p *BaroclinicGyreProcessor) glueAndStage(ctx context.Context, name string, tiles []string) (string, int64, error) {
	tmp, err := os.CreateTemp("", "gluemnc-*.nc")
	if err != nil {
		return "", 0, fmt.Errorf("create scratch file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := gluemnc.Glue(tmpPath, tiles); err != nil {
		return "", 0, err
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return "", 0, fmt.Errorf("open glued file: %w", err)
	}
	defer f.Close()

	return p.store.Put(ctx, name, f)
}

// collectTiles scans the mnc output dir for grid and state tile files.
// Leftover grid.nc/state.nc files from earlier glue runs are skipped:
// feeding a glued file back into the glue breaks it.
func collectTiles(dir string) (gridTiles, stateTiles []string, err error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read mnc dir %s: %w", dir, err)
	}

	for _, d := range dirents {
		name := d.Name()
		switch {
		case !strings.HasSuffix(name, ".nc"):
			continue
		case name == "grid.nc" || name == "state.nc":
			continue
		case strings.HasPrefix(name, "grid"):
			gridTiles = append(gridTiles, filepath.Join(dir, name))
		case strings.HasPrefix(name, "state"):
			stateTiles = append(stateTiles, filepath.Join(dir, name))
		}
	}

	if len(gridTiles) == 0 || len(stateTiles) == 0 {
		return nil, nil, fmt.Errorf("no grid/state tile files found in %s", dir)
	}

	return gridTiles, stateTiles, nil
}

func artifactName(kind, jobID, ext string) string {
	return fmt.Sprintf("outputs-%s-%s-%s%s", kind, ProcessID, jobID, ext)
}

type inputParams struct {
	endTime int
	deltaT  int
	viscAh  int
	tauMax  float64
	tmin    float64
	tmax    float64
}

func parseInputs(inputs map[string]string) (*inputParams, error) {
	p := &inputParams{
		endTime: defaultEndTime,
		deltaT:  defaultDeltaT,
		viscAh:  defaultViscAh,
		tauMax:  0.1,
		tmin:    0.0,
		tmax:    30.0,
	}

	var err error
	if p.endTime, err = intInput(inputs, "endTime", p.endTime); err != nil {
		return nil, err
	}
	if p.deltaT, err = intInput(inputs, "deltaT", p.deltaT); err != nil {
		return nil, err
	}
	if p.viscAh, err = intInput(inputs, "viscAh", p.viscAh); err != nil {
		return nil, err
	}
	if p.tauMax, err = floatInput(inputs, "tauMax", p.tauMax); err != nil {
		return nil, err
	}
	if p.tmin, err = floatInput(inputs, "Tmin", p.tmin); err != nil {
		return nil, err
	}
	if p.tmax, err = floatInput(inputs, "Tmax", p.tmax); err != nil {
		return nil, err
	}

	if p.deltaT <= 0 || p.endTime <= 0 {
		return nil, fmt.Errorf("%w: endTime and deltaT must be positive", domain.ErrInvalidParameter)
	}
	if p.tmax < p.tmin {
		return nil, fmt.Errorf("%w: Tmax must not be below Tmin", domain.ErrInvalidParameter)
	}

	return p, nil
}

func intInput(inputs map[string]string, key string, def int) (int, error) {
	raw, ok := inputs[key]
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", domain.ErrInvalidParameter, key, raw)
	}
	return v, nil
}

func floatInput(inputs map[string]string, key string, def float64) (float64, error) {
	raw, ok := inputs[key]
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number, got %q", domain.ErrInvalidParameter, key, raw)
	}
	return v, nil
}
