package commands

import (
	"context"
	"fmt"

	"github.com/bryanchriswhite/snapframe/internal/export"
	"github.com/bryanchriswhite/snapframe/internal/logger"
	"github.com/bryanchriswhite/snapframe/internal/recipe"
	"github.com/bryanchriswhite/snapframe/internal/sink"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var renderCmd = &cobra.Command{
	Use:   "render RECIPE",
	Short: "Render a YAML recipe",
	Long: `Render a screenshot recipe without starting the server.

A recipe names a screenshot, optional effect overrides, annotations and one
or more outputs. Settings the recipe leaves out fall back to the configured
editor defaults. Outputs are encoded concurrently.`,
	Example: `  # Render every output listed in the recipe
  snapframe render docs/hero.yaml

  # Render to an explicit file instead
  snapframe render docs/hero.yaml -o hero.webp

  # Also copy the PNG to the clipboard
  snapframe render docs/hero.yaml --copy`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

var (
	renderOutputs []string
	renderCopy    bool
)

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringSliceVarP(&renderOutputs, "output", "o", nil, "output file (repeatable, overrides the recipe outputs)")
	renderCmd.Flags().BoolVar(&renderCopy, "copy", false, "copy the rendered PNG to the clipboard")
}

func runRender(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("render")

	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	r, err := recipe.Load(args[0])
	if err != nil {
		return err
	}
	state, err := r.State(cfg.Editor.State())
	if err != nil {
		return err
	}
	anns, err := r.BuildAnnotations()
	if err != nil {
		return err
	}

	outputs := r.Outputs
	if len(renderOutputs) > 0 {
		outputs = make([]recipe.Output, 0, len(renderOutputs))
		for _, path := range renderOutputs {
			outputs = append(outputs, recipe.Output{Path: path})
		}
	}
	if len(outputs) == 0 && !renderCopy {
		return fmt.Errorf("recipe %s has no outputs (use -o or --copy)", args[0])
	}

	fallback, err := cfg.Export.Options()
	if err != nil {
		return err
	}

	desktop := sink.NewDesktop()
	exporter := export.NewExporter(desktop)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, o := range outputs {
		opts, err := o.ExportOptions(fallback)
		if err != nil {
			return fmt.Errorf("output %s: %w", o.Path, err)
		}
		path := o.Path
		if len(renderOutputs) == 0 {
			path = r.OutputPath(o)
		}

		g.Go(func() error {
			data, err := exporter.Export(state, anns, opts)
			if err != nil {
				return fmt.Errorf("output %s: %w", path, err)
			}
			if err := desktop.WriteFile(gctx, data, path); err != nil {
				return err
			}
			log.Info().Str("path", path).Str("format", string(opts.Format)).Int("bytes", len(data)).Msg("Rendered")
			return nil
		})
	}
	if renderCopy {
		g.Go(func() error {
			return exporter.ExportAndCopy(gctx, state, anns)
		})
	}
	return g.Wait()
}
