// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"log/slog"

	"github.com/atrox/maestro/pkg/registry"
)

func NewRegistry(logger *slog.Logger, definitionsPath string) *registry.Registry {
	reg := registry.NewRegistry(logger)

	if definitionsPath != "" {
		if err := reg.LoadDirectory(definitionsPath); err != nil {
			panic(err)
		}
	}

	return reg
}
