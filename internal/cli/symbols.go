package cli

import (
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/symdex/internal/domain/symbol"
	"github.com/kailas-cloud/symdex/internal/usecase/querybuild"
)

func newSymbolsCommand(a *app) *cobra.Command {
	var modulePrefix string

	cmd := &cobra.Command{
		Use:   "symbols [names...]",
		Short: "Generate symbols for component names",
		Long: `Generate a unique symbol for each component name. Without names the
symbol table of the relationship map is printed instead.`,
		Example: `  symdexctl symbols Page Header Section
  symdexctl symbols -r config/relationships.yaml -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var mapping map[string]string
			if len(args) == 0 {
				snap, err := a.snapshot(cmd.Context())
				if err != nil {
					return err
				}
				mapping = snap.Table.Map()
			} else {
				pools, err := a.pools()
				if err != nil {
					return err
				}
				mapping, err = symbol.Generate(pools, args, modulePrefix)
				if err != nil {
					return err
				}
			}

			if a.output == OutputJSON {
				return renderJSON(cmd.OutOrStdout(), mapping)
			}
			renderMapping(cmd.OutOrStdout(), mapping)
			return nil
		},
	}
	cmd.Flags().StringVar(&modulePrefix, "module-prefix", "", "prefix prepended to every generated symbol")
	return cmd
}

// pools returns the configured symbol pools, falling back to the defaults
// when no config file is present.
func (a *app) pools() (symbol.Pools, error) {
	cfg, err := a.config()
	if err != nil {
		if a.configPath != "" {
			return symbol.Pools{}, err
		}
		return querybuild.ReserveSymbols(symbol.DefaultPools()), nil
	}
	if perLetter, fallback, ok := cfg.Catalog.SymbolPools(); ok {
		return querybuild.ReserveSymbols(symbol.Pools{PerLetter: perLetter, Fallback: fallback}), nil
	}
	return querybuild.ReserveSymbols(symbol.DefaultPools()), nil
}
