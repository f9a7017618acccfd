// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/CellarTrace/cmd/cellartrace/config"
	"github.com/AleutianAI/CellarTrace/pkg/logging"
)

var (
	cfg config.Config
	log *logging.Logger

	configPath string

	rootCmd = &cobra.Command{
		Use:   "cellartrace",
		Short: "A CLI for wine batch lineage analysis",
		Long: `CellarTrace reads cellar transaction exports, reconstructs the
provenance graph of every wine batch, and writes lineage reports and
export artifacts for compliance and inventory reconciliation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(CLIExitError)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (default: ./cellartrace.yaml, then ~/.cellartrace/cellartrace.yaml)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.Load(configPath)
		} else {
			cfg, err = config.LoadDefault()
		}
		if err != nil {
			return err
		}

		log = logging.New(logging.Config{
			Level:   logging.ParseLevel(cfg.Logging.Level),
			LogDir:  cfg.Logging.LogDir,
			Service: "cellartrace",
			JSON:    cfg.Logging.JSON,
		})
		return nil
	}

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if log != nil {
			log.Close()
		}
	}
}
