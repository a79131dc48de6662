package main

import (
	"log"

	"github.com/aquainfra/mitgcm-ogc-backend/internal/mitgcm/gluemnc"
)

// RunGluemnc glues tiled mnc output files into one NetCDF file.
func RunGluemnc(args []string) {
	if len(args) < 2 {
		log.Fatal("usage: worker gluemnc <out.nc> <tile.nc>...")
	}

	out := args[0]
	tiles := args[1:]

	if err := gluemnc.Glue(out, tiles); err != nil {
		log.Fatalf("gluemnc failed: %v", err)
	}

	log.Printf("glued %d tiles into %s", len(tiles), out)
}
