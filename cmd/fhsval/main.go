package main

import (
	"os"

	"github.com/luochen1990/fhsval/pkg/cli"
	"github.com/luochen1990/fhsval/pkg/logger"
)

func main() {
	logger.Init()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
