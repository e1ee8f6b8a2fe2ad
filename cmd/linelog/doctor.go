package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"linelog/internal/cache"
	"linelog/internal/config"
	lerrors "linelog/internal/errors"
	"linelog/internal/gitquery"
)

var (
	doctorFormat string
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose linelog issues",
	Long: `Diagnose linelog configuration and environment issues.

Checks that git is installed, that the target directory is a usable
repository with at least one commit, that the configuration is valid,
and that the output and cache locations are writable.`,
	Run: runDoctor,
}

func init() {
	doctorCmd.Flags().StringVar(&doctorFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(doctorCmd)
}

// DoctorCheck is a single diagnostic check result.
type DoctorCheck struct {
	Name           string              `json:"name"`
	Status         string              `json:"status"` // "pass", "warn", "fail"
	Message        string              `json:"message"`
	SuggestedFixes []lerrors.FixAction `json:"suggestedFixes,omitempty"`
}

// DoctorReport contains all diagnostic results.
type DoctorReport struct {
	Healthy bool          `json:"healthy"`
	Checks  []DoctorCheck `json:"checks"`
}

func runDoctor(cmd *cobra.Command, args []string) {
	start := time.Now()
	repoRoot := mustResolveRepoRoot()

	report := DoctorReport{Healthy: true}
	add := func(c DoctorCheck) {
		if c.Status == "fail" {
			report.Healthy = false
		}
		report.Checks = append(report.Checks, c)
	}

	add(checkGit())
	add(checkRepository(repoRoot))

	cfg, cfgCheck := checkConfig(repoRoot)
	add(cfgCheck)
	add(checkOutputDir(repoRoot, cfg))
	add(checkCache(repoRoot, cfg))

	if doctorFormat == "json" {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
	} else {
		printHumanReport(report)
		fmt.Printf("\n(Diagnostics took %dms)\n", time.Since(start).Milliseconds())
	}

	if !report.Healthy {
		os.Exit(1)
	}
}

func checkGit() DoctorCheck {
	path, err := exec.LookPath("git")
	if err != nil {
		return DoctorCheck{
			Name:    "git",
			Status:  "fail",
			Message: "git executable not found on PATH",
			SuggestedFixes: []lerrors.FixAction{
				{Command: "apt install git", Description: "Install git (Debian/Ubuntu)"},
				{Command: "brew install git", Description: "Install git (macOS)"},
			},
		}
	}

	out, err := exec.Command("git", "--version").Output()
	if err != nil {
		return DoctorCheck{
			Name:    "git",
			Status:  "fail",
			Message: fmt.Sprintf("git found at %s but not runnable: %v", path, err),
		}
	}
	return DoctorCheck{
		Name:    "git",
		Status:  "pass",
		Message: strings.TrimSpace(string(out)),
	}
}

func checkRepository(repoRoot string) DoctorCheck {
	client, err := gitquery.NewClient(repoRoot, 10*time.Second, newLogger())
	if err != nil {
		check := DoctorCheck{
			Name:    "repository",
			Status:  "fail",
			Message: err.Error(),
		}
		if lerrors.HasCode(err, lerrors.RepoInvalid) {
			check.Message = fmt.Sprintf("%s is not a git repository", repoRoot)
			check.SuggestedFixes = []lerrors.FixAction{
				{Command: "git init", Description: "Initialize a repository here"},
				{Command: "linelog doctor --repo <path>", Description: "Point at an existing repository"},
			}
		}
		return check
	}

	head, err := client.Head(context.Background())
	if err != nil {
		return DoctorCheck{
			Name:    "repository",
			Status:  "warn",
			Message: "repository has no commits; there is no history to trace",
			SuggestedFixes: []lerrors.FixAction{
				{Command: "git commit", Description: "Create an initial commit"},
			},
		}
	}
	return DoctorCheck{
		Name:    "repository",
		Status:  "pass",
		Message: fmt.Sprintf("valid repository, head %s", shortRev(head)),
	}
}

func checkConfig(repoRoot string) (*config.Config, DoctorCheck) {
	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		return config.DefaultConfig(), DoctorCheck{
			Name:    "config",
			Status:  "fail",
			Message: fmt.Sprintf("cannot load config: %v", err),
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, DoctorCheck{
			Name:    "config",
			Status:  "fail",
			Message: err.Error(),
			SuggestedFixes: []lerrors.FixAction{
				{Command: "linelog init --force", Description: "Rewrite the default configuration"},
			},
		}
	}

	configPath := filepath.Join(repoRoot, config.StateDirName, "config.json")
	if _, statErr := os.Stat(configPath); statErr != nil {
		return cfg, DoctorCheck{
			Name:    "config",
			Status:  "warn",
			Message: "no config file found, using defaults",
			SuggestedFixes: []lerrors.FixAction{
				{Command: "linelog init", Description: "Write the default configuration"},
			},
		}
	}
	return cfg, DoctorCheck{Name: "config", Status: "pass", Message: configPath}
}

func checkOutputDir(repoRoot string, cfg *config.Config) DoctorCheck {
	dir := resolveStatePath(repoRoot, cfg.Report.OutputDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return DoctorCheck{
			Name:    "output",
			Status:  "fail",
			Message: fmt.Sprintf("cannot create output directory %s: %v", dir, err),
		}
	}

	probe := filepath.Join(dir, ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return DoctorCheck{
			Name:    "output",
			Status:  "fail",
			Message: fmt.Sprintf("output directory %s is not writable: %v", dir, err),
		}
	}
	_ = os.Remove(probe)

	return DoctorCheck{Name: "output", Status: "pass", Message: dir}
}

func checkCache(repoRoot string, cfg *config.Config) DoctorCheck {
	if !cfg.Cache.Enabled {
		return DoctorCheck{Name: "cache", Status: "pass", Message: "disabled"}
	}

	path := resolveStatePath(repoRoot, cfg.Cache.Path)
	store, err := cache.OpenStore(path, newLogger())
	if err != nil {
		return DoctorCheck{
			Name:    "cache",
			Status:  "warn",
			Message: fmt.Sprintf("cannot open cache database %s: %v (traces will run uncached)", path, err),
			SuggestedFixes: []lerrors.FixAction{
				{Command: "rm " + path, Description: "Remove the cache database; it will be recreated"},
			},
		}
	}
	defer store.Close()

	return DoctorCheck{Name: "cache", Status: "pass", Message: path}
}

func printHumanReport(report DoctorReport) {
	for _, c := range report.Checks {
		marker := "✓"
		switch c.Status {
		case "warn":
			marker = "!"
		case "fail":
			marker = "✗"
		}
		fmt.Printf("%s %-10s %s\n", marker, c.Name, c.Message)
		for _, fix := range c.SuggestedFixes {
			fmt.Printf("    fix: %s", fix.Command)
			if fix.Description != "" {
				fmt.Printf("  (%s)", fix.Description)
			}
			fmt.Println()
		}
	}

	if report.Healthy {
		fmt.Println("\nAll checks passed.")
	} else {
		fmt.Println("\nSome checks failed.")
	}
}
