package main

import (
	"context"
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"example.com/attribution/internal/attribution"
	"example.com/attribution/internal/config"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "attribution-api",
		Short:         "Donation attribution and dashboard metrics service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newClassifyCmd(), newMigrateCmd())
	return root
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

// loadRules returns nil (built-in rules only) when path is empty.
func loadRules(path string) (*attribution.RuleSet, error) {
	if path == "" {
		return nil, nil
	}
	return attribution.LoadRuleSet(path)
}

func setup(cfg config.Config) (*zap.Logger, *attribution.RuleSet, error) {
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	rules, err := loadRules(cfg.RulesFile)
	if err != nil {
		return nil, nil, err
	}
	return log, rules, nil
}
