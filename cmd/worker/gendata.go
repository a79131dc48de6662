package main

import (
	"flag"
	"log"

	"github.com/aquainfra/mitgcm-ogc-backend/internal/mitgcm/gendata"
)

// RunGendata writes the baroclinic gyre input files without going
// through the HTTP API, for preparing a model tree by hand.
func RunGendata(args []string) {
	fs := flag.NewFlagSet("gendata", flag.ExitOnError)

	p := gendata.Defaults()
	outDir := fs.String("out", ".", "output directory")
	fs.Float64Var(&p.Ho, "Ho", p.Ho, "depth of ocean (m)")
	fs.IntVar(&p.Nx, "nx", p.Nx, "gridpoints in x")
	fs.IntVar(&p.Ny, "ny", p.Ny, "gridpoints in y")
	fs.Float64Var(&p.Xo, "xo", p.Xo, "x origin of the ocean domain")
	fs.Float64Var(&p.Yo, "yo", p.Yo, "y origin of the ocean domain")
	fs.Float64Var(&p.Dx, "dx", p.Dx, "grid spacing in x (degrees)")
	fs.Float64Var(&p.Dy, "dy", p.Dy, "grid spacing in y (degrees)")
	fs.Float64Var(&p.TauMax, "tauMax", p.TauMax, "peak zonal wind stress")
	fs.Float64Var(&p.Tmin, "Tmin", p.Tmin, "restoring SST at the northern edge")
	fs.Float64Var(&p.Tmax, "Tmax", p.Tmax, "restoring SST at the southern edge")

	if err := fs.Parse(args); err != nil {
		log.Fatal(err)
	}

	if err := gendata.Write(*outDir, p); err != nil {
		log.Fatalf("gendata failed: %v", err)
	}

	for _, f := range gendata.Files() {
		log.Printf("wrote %s/%s", *outDir, f)
	}
}
