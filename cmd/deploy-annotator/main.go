// Package main is the entry point for the deploy annotator server.
package main

import (
	"os"

	"github.com/stackbound/deploy-annotator/cmd/deploy-annotator/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
