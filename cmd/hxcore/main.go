package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pthm/hxcore/lib/generator"
)

const version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hxcore",
		Short: "hxcore - component metadata compiler and virtual-scroll feeds for Go",
		Example: `  hxcore generate ./...                    Generate for all packages
  hxcore generate --dry-run ./...          Preview generation
  hxcore clean ./...                       Remove all generated files
  hxcore serve --config hxcore.yaml --seed 500`,
		SilenceUsage: true,
	}
	root.AddCommand(newGenerateCmd(), newCleanCmd(), newServeCmd(), newVersionCmd())
	return root
}

func newGenerateCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "generate [packages]",
		Short: "Generate constructor registrations from //hx: directives",
		RunE: func(cmd *cobra.Command, args []string) error {
			gen := generator.New(generator.Options{
				DryRun: dryRun,
			})
			return gen.Generate(patterns(args)...)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be generated without writing files")
	return cmd
}

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean [packages]",
		Short: "Remove generated files (*_hx.go)",
		RunE: func(cmd *cobra.Command, args []string) error {
			gen := generator.New(generator.Options{})
			return gen.Clean(patterns(args)...)
		},
	}
}

func newServeCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo feed server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.config, "config", "", "YAML settings file")
	cmd.Flags().IntVar(&opts.seed, "seed", 0, "demo records to add when the database is empty")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hxcore version %s\n", version)
		},
	}
}

func patterns(args []string) []string {
	if len(args) == 0 {
		return []string{"./..."}
	}
	return args
}
