package main

import (
	"os"

	"github.com/clubmigrantegt/contigo-unido-sub000/backend/tools/puentectl/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
