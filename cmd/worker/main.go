package main

import (
	"log"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: worker gendata <outdir> [flags] | gluemnc <out.nc> <tile.nc>...")
	}

	switch os.Args[1] {
	case "gendata":
		RunGendata(os.Args[2:])
	case "gluemnc":
		RunGluemnc(os.Args[2:])
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}
