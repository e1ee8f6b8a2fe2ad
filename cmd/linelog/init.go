package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"linelog/internal/config"
	lerrors "linelog/internal/errors"
)

var (
	initForce bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize linelog configuration",
	Long:  "Creates a .linelog/ directory with default configuration in the repository root",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Force reinitialization (removes existing .linelog directory)")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	repoRoot := mustResolveRepoRoot()

	stateDir := filepath.Join(repoRoot, config.StateDirName)
	configPath := filepath.Join(stateDir, "config.json")

	if _, statErr := os.Stat(stateDir); statErr == nil {
		if !initForce {
			// Idempotent behavior: already initialized is success.
			fmt.Println("linelog already initialized.")
			fmt.Printf("Configuration at: %s\n", configPath)
			fmt.Println("\nRun 'linelog init --force' to reinitialize.")
			return nil
		}
		if removeErr := os.RemoveAll(stateDir); removeErr != nil {
			return lerrors.New(lerrors.InternalError, "failed to remove existing "+config.StateDirName+" directory", removeErr)
		}
	}

	cfg := config.DefaultConfig()
	cfg.RepoRoot = "."
	if err := cfg.Save(repoRoot); err != nil {
		return lerrors.New(lerrors.InternalError, "failed to write config file", err)
	}

	fmt.Println("linelog initialized successfully!")
	fmt.Printf("Configuration written to: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Run 'linelog doctor' to check your setup")
	fmt.Println("  2. Run 'linelog trace --match <pattern>' to trace lines")

	return nil
}
