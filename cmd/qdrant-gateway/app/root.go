// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package app

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the qdrant-gateway CLI, grounded on stacklok-toolhive's
// cmd/thv/app.NewRootCmd: one root command with subcommands, no global
// state beyond persistent flags.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "qdrant-gateway",
		Short: "Collection-aware embedding-and-storage gateway for Qdrant",
		Long: `qdrant-gateway maps collection names to embedding models, lazily
constructs and shares per-model embedder runtimes, auto-provisions backend
Qdrant collections, and exposes store/find/get/update/delete operations
over the Model Context Protocol.`,
	}

	rootCmd.PersistentFlags().String("config", "config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "Log format (json, text)")

	rootCmd.AddCommand(newServeCommand())

	return rootCmd
}
