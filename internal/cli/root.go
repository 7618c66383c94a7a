// Package cli provides the command-line interface for panelviz.
package cli

import (
	"fmt"

	"panelviz/internal/config"

	"github.com/spf13/cobra"
)

// globals are the persistent flags shared by every subcommand.
type globals struct {
	configFile string
	logLevel   string
}

// load reads configuration and applies flag overrides.
func (g *globals) load() (*config.Config, error) {
	m, err := LoadConfig(g.configFile)
	if err != nil {
		return nil, err
	}
	cfg := m.Get()
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	return cfg, nil
}

// runtime loads configuration and wires a Runtime from it.
func (g *globals) runtime() (*Runtime, error) {
	cfg, err := g.load()
	if err != nil {
		return nil, err
	}
	return NewRuntime(cfg)
}

// NewRootCmd creates the root command for panelviz
func NewRootCmd(version, commit, buildDate string) *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "panelviz",
		Short: "Preview acoustic panels on a photo of a wall or ceiling",
		Long: `panelviz composites textured acoustic panels onto a photo at their real
size, using the width of the photographed surface to derive the scale.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&g.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/panelviz/panelviz.yaml)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override logging.level")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "panelviz %s\n", version)
			fmt.Fprintf(out, "commit: %s\n", commit)
			fmt.Fprintf(out, "built: %s\n", buildDate)
		},
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newServeCmd(g))
	rootCmd.AddCommand(newRenderCmd(g))
	rootCmd.AddCommand(newCatalogCmd(g))

	return rootCmd
}
