// Package cli implements symdexctl, the command-line client for symdex.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/symdex/internal/bootstrap"
	"github.com/kailas-cloud/symdex/internal/catalog"
	"github.com/kailas-cloud/symdex/internal/config"
	"github.com/kailas-cloud/symdex/internal/logger"
	"github.com/kailas-cloud/symdex/internal/version"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// app holds the global flags shared by every command.
type app struct {
	configPath    string
	env           string
	relationships string
	root          string
	output        string
	verbose       bool
	logger        *zap.Logger
}

// NewRootCmd creates the symdexctl root command.
func NewRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "symdexctl",
		Short: "symdex - symbol DSL compiler and hybrid query client",
		Long: `symdexctl generates component symbols, parses and validates the
Structure, Content and Call dialects against a relationship map, compiles
hybrid queries and loads points into a collection.`,
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.output != OutputText && a.output != OutputJSON {
				return fmt.Errorf("unknown output format %q (text|json)", a.output)
			}
			level := ""
			if a.verbose {
				level = "debug"
			}
			l, err := logger.NewLogger("cli", level)
			if err != nil {
				return err
			}
			a.logger = l
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: config/<env>.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.env, "env", config.GetEnv(), "environment name used to locate the config file")
	rootCmd.PersistentFlags().StringVarP(&a.relationships, "relationships", "r", "",
		"relationship map file (overrides catalog.relationships_file)")
	rootCmd.PersistentFlags().StringVar(&a.root, "root", "", "root component (overrides the map's root)")
	rootCmd.PersistentFlags().StringVarP(&a.output, "output", "o", OutputText, "output format (text|json)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose logging")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{OutputText, OutputJSON}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(
		newVersionCommand(),
		newSymbolsCommand(a),
		newParseCommand(a),
		newValidateCommand(a),
		newStructureCommand(a),
		newGraphCommand(a),
		newQueryCommand(a),
		newLoadCommand(a),
	)
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// config loads the configuration file.
func (a *app) config() (config.Config, error) {
	if a.configPath != "" {
		return config.LoadFile(a.configPath)
	}
	return config.Load(a.env)
}

// catalog builds the catalog from --relationships or the configured file.
// A config file is optional when --relationships is given.
func (a *app) catalog(ctx context.Context) (*catalog.Catalog, error) {
	var ccfg config.CatalogConfig
	if cfg, err := a.config(); err == nil {
		ccfg = cfg.Catalog
	} else if a.relationships == "" {
		return nil, fmt.Errorf("no relationship map: pass --relationships or a config file: %w", err)
	}
	if a.relationships != "" {
		ccfg.RelationshipsFile = a.relationships
	}
	if a.root != "" {
		ccfg.Root = a.root
	}
	if ccfg.RelationshipsFile == "" {
		return nil, fmt.Errorf("no relationship map: pass --relationships or set catalog.relationships_file")
	}
	return bootstrap.NewCatalog(ctx, ccfg, a.logger)
}

func (a *app) snapshot(ctx context.Context) (*catalog.Snapshot, error) {
	c, err := a.catalog(ctx)
	if err != nil {
		return nil, err
	}
	return c.Current(), nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "symdexctl %s (commit %s, built %s)\n",
				version.Version, version.Commit, version.Date)
		},
	}
}
