// Command thaum is the thin façade consumer around the core: it crawls a
// project, drives the six-phase compression pipeline, and prints the
// resulting hierarchy. CLI argument parsing beyond this command tree, TUI
// rendering, and file watching are explicitly out of scope (SPEC_FULL.md §1).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/holo-q/thaum"
	"github.com/holo-q/thaum/internal/tracer"
)

var (
	language         string
	compressionLevel string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "thaum",
		Short: "Hierarchical LLM compression of a source codebase",
	}
	root.AddCommand(newProcessCmd())
	return root
}

func newProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process [project-path]",
		Short: "Crawl project-path and drive the six-phase compression pipeline",
		Args:  cobra.ExactArgs(1),
		RunE:  runProcess,
	}
	cmd.Flags().StringVar(&language, "language", "go", "source language to crawl")
	cmd.Flags().StringVar(&compressionLevel, "level", string(thaum.LevelOptimize), "compression level: optimize, compress, golf, endgame")
	return cmd
}

// runProcess wires a Thaum instance and drives ProcessCodebase for one CLI
// invocation.
//
// Description:
//
//	Builds a Thaum with a TTY-aware trace sink, installs a SIGINT/SIGTERM
//	handler that cancels the run's context, then runs ProcessCodebase to
//	completion and prints the resulting root symbol count, run id, and
//	extracted keys.
//
// Inputs:
//   - cmd: The cobra command carrying the parent context.
//   - args: Exactly one positional argument, the project path.
//
// Outputs:
//   - error: Non-nil if construction or processing fails.
func runProcess(cmd *cobra.Command, args []string) error {
	projectPath := args[0]
	level := thaum.CompressionLevel(compressionLevel)

	logger := slog.Default()
	sink := selectTraceSink(logger)

	t, err := thaum.New(thaum.WithLogger(logger), thaum.WithTraceSink(sink))
	if err != nil {
		return fmt.Errorf("thaum: initializing: %w", err)
	}
	defer func() {
		if closeErr := t.Close(); closeErr != nil {
			logger.Warn("thaum: cache close failed", slog.String("error", closeErr.Error()))
		}
	}()

	printBanner(projectPath, language, level)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("thaum: received interrupt, cancelling")
		cancel()
	}()

	hier, err := t.ProcessCodebase(ctx, projectPath, language, level)
	if err != nil {
		return fmt.Errorf("thaum: processing %s: %w", projectPath, err)
	}

	fmt.Printf("Processed %d root symbols from %s (run %s)\n", len(hier.RootSymbols), hier.ProjectPath, hier.RunID)
	for key, value := range hier.ExtractedKeys {
		fmt.Printf("  %s: %s\n", key, value)
	}
	return nil
}

// selectTraceSink picks a bare slog sink for an interactive terminal and
// layers an OTel span sink on top when stdout is not a terminal (piped into
// a log collector, e.g. CI), grounded on the teacher's TTY-detection-driven
// output mode selection in cmd/trace/main.go, adapted from
// colorized-vs-plain text to minimal-vs-traced output since Thaum has no
// TUI to fall back to.
func selectTraceSink(logger *slog.Logger) tracer.TraceSink {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		return tracer.NewSlogSink(logger)
	}
	return tracer.NewMultiSink(tracer.NewSlogSink(logger), tracer.NewSpanSink())
}

func printBanner(projectPath, language string, level thaum.CompressionLevel) {
	fmt.Printf("thaum: compressing %s (%s, level=%s)\n", projectPath, language, level)
}
