// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the match-engine CLI.
// Implements: prd010-matching, prd011-evidence-store (CLI surface).
// See docs/ARCHITECTURE § Pipeline Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meshintel/match-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the match-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "match-engine",
	Short: "Match medical cases to specialist doctors with evidence-backed scores",
	Long: `match-engine matches a structured, de-identified medical case against a
local evidence corpus of publications, clinical trials, and grants, and
returns ranked specialist candidates with transparent scores and an
evidence trail for every score component.

Each operation is a subcommand: ingest loads corpus files into the
evidence store, match runs the matching pipeline for a case, and explain
shows the persisted score breakdown for one candidate.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./match-engine.yaml or ~/.config/match-engine/config.yaml)")
	rootCmd.PersistentFlags().String("store", "", "evidence store SQLite file (overrides config)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("match-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "match-engine"))
		}
	}

	viper.SetEnvPrefix("MATCH_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
