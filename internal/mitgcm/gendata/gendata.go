// Package gendata writes the binary input files for the MITgcm
// baroclinic gyre configuration: bathymetry, zonal wind stress and the
// restoring sea-surface temperature field. The file names are the ones
// referenced by the bathyFile, zonalWindFile and thetaClimFile entries
// of the model's "data" namelist.
package gendata

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// Params describes the model grid and the tunable forcing fields.
type Params struct {
	Ho     float64 // depth of ocean (m)
	Nx     int     // gridpoints in x
	Ny     int     // gridpoints in y
	Xo     float64 // x origin of the ocean domain (southwestern corner)
	Yo     float64 // y origin of the ocean domain
	Dx     float64 // grid spacing in x (degrees longitude)
	Dy     float64 // grid spacing in y (degrees latitude)
	TauMax float64 // peak zonal wind stress
	Tmin   float64 // restoring temperature at the northern edge
	Tmax   float64 // restoring temperature at the southern edge
}

// Defaults returns the out-of-box tutorial configuration.
func Defaults() Params {
	return Params{
		Ho:     1800,
		Nx:     62,
		Ny:     62,
		Xo:     0,
		Yo:     15,
		Dx:     1,
		Dy:     1,
		TauMax: 0.1,
		Tmin:   0,
		Tmax:   30,
	}
}

// Output file names, fixed by the model's input namelist.
const (
	BathyFile     = "bathy.bin"
	ZonalWindFile = "windx_cosy.bin"
	ThetaClimFile = "SST_relax.bin"
)

// Files lists the files Write produces.
func Files() []string {
	return []string{BathyFile, ZonalWindFile, ThetaClimFile}
}

// Write generates the three input files in outDir.
func Write(outDir string, p Params) error {
	if p.Nx < 3 || p.Ny < 3 {
		return fmt.Errorf("grid must be at least 3x3, got %dx%d", p.Nx, p.Ny)
	}

	if err := writeField(filepath.Join(outDir, BathyFile), Bathymetry(p)); err != nil {
		return err
	}
	if err := writeField(filepath.Join(outDir, ZonalWindFile), ZonalWind(p)); err != nil {
		return err
	}
	return writeField(filepath.Join(outDir, ThetaClimFile), RestoringTemperature(p))
}

// Bathymetry returns the (ny,nx) depth field: a flat bottom at -Ho with
// a one-cell ring of walls (depth zero) around the domain edge.
func Bathymetry(p Params) [][]float64 {
	h := newField(p.Ny, p.Nx)
	for j := 0; j < p.Ny; j++ {
		for i := 0; i < p.Nx; i++ {
			if j == 0 || j == p.Ny-1 || i == 0 || i == p.Nx-1 {
				h[j][i] = 0
			} else {
				h[j][i] = -p.Ho
			}
		}
	}
	return h
}

// ZonalWind returns the (ny,nx) zonal wind-stress field on (XG,YC)
// points: tau = -tauMax*cos(2*pi*(Y-yo)/((ny-2)*dy)). The ny-2 accounts
// for the wall cells at the north and south boundaries.
func ZonalWind(p Params) [][]float64 {
	y := cellYCenters(p)
	tau := newField(p.Ny, p.Nx)
	for j := 0; j < p.Ny; j++ {
		v := -p.TauMax * math.Cos(2*math.Pi*(y[j]-p.Yo)/(float64(p.Ny-2)*p.Dy))
		for i := 0; i < p.Nx; i++ {
			tau[j][i] = v
		}
	}
	return tau
}

// RestoringTemperature returns the (ny,nx) restoring temperature field,
// a linear ramp in y from Tmax at the southern edge to Tmin at the
// northern edge, computed at YC points.
func RestoringTemperature(p Params) [][]float64 {
	ynorth := p.Yo + float64(p.Ny-2)*p.Dy
	y := cellYCenters(p)
	t := newField(p.Ny, p.Nx)
	for j := 0; j < p.Ny; j++ {
		v := (p.Tmax-p.Tmin)/(float64(p.Ny-2)*p.Dy)*(ynorth-y[j]) + p.Tmin
		for i := 0; i < p.Nx; i++ {
			t[j][i] = v
		}
	}
	return t
}

// cellYCenters returns the YC latitudes: linspace(yo-dy, ynorth, ny)
// shifted north by dy/2.
func cellYCenters(p Params) []float64 {
	ynorth := p.Yo + float64(p.Ny-2)*p.Dy
	start := p.Yo - p.Dy
	step := (ynorth - start) / float64(p.Ny-1)

	y := make([]float64, p.Ny)
	for j := range y {
		y[j] = start + float64(j)*step + p.Dy/2
	}
	return y
}

func newField(ny, nx int) [][]float64 {
	f := make([][]float64, ny)
	for j := range f {
		f[j] = make([]float64, nx)
	}
	return f
}

// writeField stores a (ny,nx) field as big-endian float32, row-major,
// the byte layout the model's exf/rdmds readers expect.
func writeField(path string, field [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := bufio.NewWriter(f)
	buf := make([]byte, 4)
	for _, row := range field {
		for _, v := range row {
			binary.BigEndian.PutUint32(buf, math.Float32bits(float32(v)))
			if _, err := w.Write(buf); err != nil {
				f.Close()
				return fmt.Errorf("write %s: %w", path, err)
			}
		}
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
