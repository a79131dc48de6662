package gendata

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readField(t *testing.T, path string, ny, nx int) [][]float64 {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, ny*nx*4, len(data), "unexpected file size for %s", path)

	field := make([][]float64, ny)
	for j := 0; j < ny; j++ {
		field[j] = make([]float64, nx)
		for i := 0; i < nx; i++ {
			bits := binary.BigEndian.Uint32(data[(j*nx+i)*4:])
			field[j][i] = float64(math.Float32frombits(bits))
		}
	}
	return field
}

func TestWriteBathymetry(t *testing.T) {
	dir := t.TempDir()
	p := Defaults()
	require.NoError(t, Write(dir, p))

	h := readField(t, filepath.Join(dir, BathyFile), p.Ny, p.Nx)

	t.Run("walls on the border ring", func(t *testing.T) {
		for i := 0; i < p.Nx; i++ {
			assert.Zero(t, h[0][i])
			assert.Zero(t, h[p.Ny-1][i])
		}
		for j := 0; j < p.Ny; j++ {
			assert.Zero(t, h[j][0])
			assert.Zero(t, h[j][p.Nx-1])
		}
	})

	t.Run("flat bottom inside", func(t *testing.T) {
		for j := 1; j < p.Ny-1; j++ {
			for i := 1; i < p.Nx-1; i++ {
				assert.InDelta(t, -1800.0, h[j][i], 1e-3)
			}
		}
	})
}

func TestWriteZonalWind(t *testing.T) {
	dir := t.TempDir()
	p := Defaults()
	require.NoError(t, Write(dir, p))

	tau := readField(t, filepath.Join(dir, ZonalWindFile), p.Ny, p.Nx)

	t.Run("uniform along x", func(t *testing.T) {
		for j := 0; j < p.Ny; j++ {
			for i := 1; i < p.Nx; i++ {
				assert.Equal(t, tau[j][0], tau[j][i])
			}
		}
	})

	t.Run("cosine symmetry about the mid-latitude", func(t *testing.T) {
		// With yo=15, dy=1 the YC latitudes are 14.5+j, so the wind
		// profile is symmetric under j -> 61-j.
		for j := 0; j < p.Ny; j++ {
			assert.InDelta(t, tau[j][0], tau[p.Ny-1-j][0], 1e-6)
		}
	})

	t.Run("westward at the southern edge", func(t *testing.T) {
		assert.Less(t, tau[1][0], 0.0)
		assert.InDelta(t, -p.TauMax, tau[0][0], 0.01)
	})

	t.Run("magnitude bounded by tauMax", func(t *testing.T) {
		for j := 0; j < p.Ny; j++ {
			assert.LessOrEqual(t, math.Abs(tau[j][0]), p.TauMax+1e-6)
		}
	})
}

func TestWriteRestoringTemperature(t *testing.T) {
	dir := t.TempDir()
	p := Defaults()
	require.NoError(t, Write(dir, p))

	trest := readField(t, filepath.Join(dir, ThetaClimFile), p.Ny, p.Nx)

	t.Run("linear ramp from south to north", func(t *testing.T) {
		// ynorth - YC(j) = 60.5 - j, so Trest(j) = 0.5*(60.5-j).
		for j := 0; j < p.Ny; j++ {
			want := 0.5 * (60.5 - float64(j))
			assert.InDelta(t, want, trest[j][0], 1e-4, "row %d", j)
		}
	})

	t.Run("uniform along x", func(t *testing.T) {
		for j := 0; j < p.Ny; j++ {
			for i := 1; i < p.Nx; i++ {
				assert.Equal(t, trest[j][0], trest[j][i])
			}
		}
	})
}

func TestWriteCustomForcing(t *testing.T) {
	dir := t.TempDir()
	p := Defaults()
	p.TauMax = 0.2
	p.Tmin = 5
	p.Tmax = 25
	require.NoError(t, Write(dir, p))

	tau := readField(t, filepath.Join(dir, ZonalWindFile), p.Ny, p.Nx)
	trest := readField(t, filepath.Join(dir, ThetaClimFile), p.Ny, p.Nx)

	assert.InDelta(t, -0.2, tau[0][0], 0.02)
	// Trest(j) = (25-5)/60*(60.5-j) + 5
	for j := 0; j < p.Ny; j++ {
		want := 20.0/60.0*(60.5-float64(j)) + 5
		assert.InDelta(t, want, trest[j][0], 1e-4, "row %d", j)
	}
}

func TestWriteRejectsTinyGrid(t *testing.T) {
	p := Defaults()
	p.Nx = 2
	assert.Error(t, Write(t.TempDir(), p))
}
