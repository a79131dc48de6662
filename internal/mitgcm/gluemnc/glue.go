// Package gluemnc reassembles MITgcm mnc output. The model decomposes
// its domain into tiles and writes one NetCDF file per tile
// (state.0000000000.t001.nc, ...); gluing copies every tile's hyperslab
// into a single file covering the full domain.
//
// Tile geometry comes from the global attributes MITgcm stamps on each
// file: sNx/sNy (tile size), Nx/Ny (domain size) and the 1-based
// tile_number. Tiles are laid out row-major, west to east, south to
// north.
package gluemnc

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ctessum/cdf"
)

type tile struct {
	path   string
	f      *os.File
	cf     *cdf.File
	number int
	sNx    int
	sNy    int
	nx     int
	ny     int
	recs   int
}

// Glue reads the tile files and writes the glued result to outPath.
// All tiles must come from the same model run.
func Glue(outPath string, tilePaths []string) error {
	if len(tilePaths) == 0 {
		return fmt.Errorf("gluemnc: no tile files given")
	}

	tiles := make([]*tile, 0, len(tilePaths))
	defer func() {
		for _, t := range tiles {
			t.f.Close()
		}
	}()

	for _, p := range tilePaths {
		t, err := openTile(p)
		if err != nil {
			return err
		}
		tiles = append(tiles, t)
	}

	ref := tiles[0]
	for _, t := range tiles[1:] {
		if t.nx != ref.nx || t.ny != ref.ny || t.sNx != ref.sNx || t.sNy != ref.sNy {
			return fmt.Errorf("gluemnc: %s has tile geometry %dx%d/%dx%d, want %dx%d/%dx%d",
				t.path, t.sNx, t.sNy, t.nx, t.ny, ref.sNx, ref.sNy, ref.nx, ref.ny)
		}
		if t.recs != ref.recs {
			return fmt.Errorf("gluemnc: %s has %d records, want %d",
				t.path, t.recs, ref.recs)
		}
	}

	h, err := buildHeader(ref)
	if err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("gluemnc: create %s: %w", outPath, err)
	}
	defer out.Close()

	cf, err := cdf.Create(out, h)
	if err != nil {
		return fmt.Errorf("gluemnc: initialize %s: %w", outPath, err)
	}

	for _, t := range tiles {
		if err := copyTile(cf, ref, t); err != nil {
			return err
		}
	}

	return out.Close()
}

func openTile(path string) (*tile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gluemnc: open tile %s: %w", path, err)
	}

	cf, err := cdf.Open(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("gluemnc: parse tile %s: %w", path, err)
	}

	t := &tile{path: path, f: f, cf: cf}
	for name, dst := range map[string]*int{
		"tile_number": &t.number,
		"sNx":         &t.sNx,
		"sNy":         &t.sNy,
		"Nx":          &t.nx,
		"Ny":          &t.ny,
	} {
		v, err := globalIntAttr(cf, name)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gluemnc: tile %s: %w", path, err)
		}
		*dst = v
	}

	if t.sNx < 1 || t.sNy < 1 || t.nx%t.sNx != 0 || t.ny%t.sNy != 0 {
		f.Close()
		return nil, fmt.Errorf("gluemnc: tile %s: domain %dx%d not divisible into %dx%d tiles",
			path, t.nx, t.ny, t.sNx, t.sNy)
	}

	// The record (time) dimension has length zero in the header; its
	// actual extent follows from the file size.
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("gluemnc: stat tile %s: %w", path, err)
	}
	t.recs = int(cf.Header.NumRecs(fi.Size()))

	return t, nil
}

// offsets returns the grid origin of the tile within the full domain.
func (t *tile) offsets() (x0, y0 int) {
	tilesX := t.nx / t.sNx
	x0 = ((t.number - 1) % tilesX) * t.sNx
	y0 = ((t.number - 1) / tilesX) * t.sNy
	return x0, y0
}

// outDimLength maps a tile dimension length onto the glued domain. The
// *p1 dimensions are the staggered grids, one point longer than the
// cell-centered ones; between neighboring tiles they overlap by one
// point, and the overlapping values are identical so overwriting is
// harmless.
func outDimLength(dim string, tileLen int, t *tile) int {
	switch dim {
	case "X":
		return t.nx
	case "Xp1":
		return t.nx + 1
	case "Y":
		return t.ny
	case "Yp1":
		return t.ny + 1
	default:
		return tileLen
	}
}

// buildHeader constructs the output header from a reference tile: same
// dimensions and variables, with the horizontal dimensions widened to
// the full domain, the record dimension frozen at the tiles' record
// count, and the tiling attributes collapsed to a single tile.
func buildHeader(ref *tile) (*cdf.Header, error) {
	var (
		dimNames []string
		dimLens  []int
		seen     = make(map[string]bool)
	)

	vars := ref.cf.Header.Variables()
	for _, v := range vars {
		dims := ref.cf.Header.Dimensions(v)
		lens := ref.cf.Header.Lengths(v)
		for i, d := range dims {
			if seen[d] {
				continue
			}
			seen[d] = true
			n := outDimLength(d, lens[i], ref)
			if n == 0 {
				n = ref.recs
			}
			dimNames = append(dimNames, d)
			dimLens = append(dimLens, n)
		}
	}

	h := cdf.NewHeader(dimNames, dimLens)

	for _, v := range vars {
		r := ref.cf.Reader(v, nil, nil)
		h.AddVariable(v, ref.cf.Header.Dimensions(v), r.Zero(1))

		// Carry over the descriptive attributes mnc writes per variable.
		for _, attr := range []string{"units", "long_name", "description"} {
			if val := ref.cf.Header.GetAttribute(v, attr); val != nil {
				h.AddAttribute(v, attr, val)
			}
		}
	}

	// The glued file is a single tile covering the whole domain.
	for name, val := range map[string]int32{
		"tile_number": 1,
		"sNx":         int32(ref.nx),
		"sNy":         int32(ref.ny),
		"Nx":          int32(ref.nx),
		"Ny":          int32(ref.ny),
		"nSx":         1,
		"nSy":         1,
		"nPx":         1,
		"nPy":         1,
	} {
		h.AddAttribute("", name, []int32{val})
	}

	h.Define()
	for _, err := range h.Check() {
		return nil, fmt.Errorf("gluemnc: invalid output header: %w", err)
	}

	return h, nil
}

// copyTile copies every variable of t into its hyperslab of the output.
func copyTile(out *cdf.File, ref, t *tile) error {
	x0, y0 := t.offsets()

	for _, v := range t.cf.Header.Variables() {
		dims := t.cf.Header.Dimensions(v)
		lens := t.cf.Header.Lengths(v)

		offsets := make([]int, len(dims))
		for i, d := range dims {
			switch d {
			case "X", "Xp1":
				offsets[i] = x0
			case "Y", "Yp1":
				offsets[i] = y0
			}
		}

		if len(lens) > 0 && lens[0] == 0 {
			if err := copyRecords(out, v, t, lens, offsets); err != nil {
				return fmt.Errorf("gluemnc: copy %s from %s: %w", v, t.path, err)
			}
			continue
		}

		r := t.cf.Reader(v, nil, nil)
		buf := r.Zero(-1)
		if _, err := r.Read(buf); err != nil {
			return fmt.Errorf("gluemnc: read %s from %s: %w", v, t.path, err)
		}

		if err := writeSlab(out, v, buf, lens, offsets); err != nil {
			return fmt.Errorf("gluemnc: write %s from %s: %w", v, t.path, err)
		}
	}

	return nil
}

// copyRecords copies a record variable one record at a time. The tile
// header reports the record dimension as zero-length, so a whole-variable
// read would come back empty; instead each record is read with an explicit
// corner and placed at the matching record of the output, whose record
// dimension buildHeader sized to the tile's record count.
func copyRecords(out *cdf.File, v string, t *tile, lens, offsets []int) error {
	n := 1
	for _, l := range lens[1:] {
		n *= l
	}

	recLens := append([]int{1}, lens[1:]...)
	recOffsets := make([]int, len(offsets))
	copy(recOffsets, offsets)

	for rec := 0; rec < t.recs; rec++ {
		begin := make([]int, len(lens))
		end := make([]int, len(lens))
		begin[0], end[0] = rec, rec+1

		r := t.cf.Reader(v, begin, end)
		buf := r.Zero(n)
		if _, err := r.Read(buf); err != nil {
			return fmt.Errorf("read record %d: %w", rec, err)
		}

		recOffsets[0] = rec
		if err := writeSlab(out, v, buf, recLens, recOffsets); err != nil {
			return fmt.Errorf("write record %d: %w", rec, err)
		}
	}

	return nil
}

// writeSlab writes a tile-shaped block of values into the output
// variable at the given per-dimension offsets, one innermost row at a
// time (rows are contiguous in both source and destination).
func writeSlab(out *cdf.File, v string, buf interface{}, lens, offsets []int) error {
	if len(lens) == 0 {
		return nil
	}

	rowLen := lens[len(lens)-1]
	rows := 1
	for _, l := range lens[:len(lens)-1] {
		rows *= l
	}

	idx := make([]int, len(lens))
	for row := 0; row < rows; row++ {
		begin := make([]int, len(lens))
		end := make([]int, len(lens))
		for i := range idx {
			begin[i] = idx[i] + offsets[i]
			end[i] = begin[i]
		}
		end[len(end)-1] = begin[len(begin)-1] + rowLen

		w := out.Writer(v, begin, end)
		if _, err := w.Write(subslice(buf, row*rowLen, (row+1)*rowLen)); err != nil {
			return err
		}

		// Advance the multi-index over the leading dimensions.
		for i := len(idx) - 2; i >= 0; i-- {
			idx[i]++
			if idx[i] < lens[i] {
				break
			}
			idx[i] = 0
		}
	}

	return nil
}

func subslice(buf interface{}, a, b int) interface{} {
	switch s := buf.(type) {
	case []float32:
		return s[a:b]
	case []float64:
		return s[a:b]
	case []int32:
		return s[a:b]
	case []int16:
		return s[a:b]
	case []int8:
		return s[a:b]
	case []byte:
		return s[a:b]
	default:
		return buf
	}
}

func globalIntAttr(cf *cdf.File, name string) (int, error) {
	val := cf.Header.GetAttribute("", name)
	if val == nil {
		return 0, fmt.Errorf("missing global attribute %q", name)
	}

	switch a := val.(type) {
	case []int32:
		if len(a) > 0 {
			return int(a[0]), nil
		}
	case []int16:
		if len(a) > 0 {
			return int(a[0]), nil
		}
	case []float64:
		if len(a) > 0 {
			return int(a[0]), nil
		}
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(a))
		if err == nil {
			return n, nil
		}
	}

	return 0, fmt.Errorf("global attribute %q has unexpected type %T", name, val)
}
