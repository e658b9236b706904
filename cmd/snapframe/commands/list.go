package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/bryanchriswhite/snapframe/internal/background"
	"github.com/bryanchriswhite/snapframe/internal/capture"
	"github.com/bryanchriswhite/snapframe/internal/geometry"
	"github.com/spf13/cobra"
)

var windowsCmd = &cobra.Command{
	Use:   "windows",
	Short: "List capturable windows",
	Long: `List the windows the capture backend can grab.

The ID column is what 'snapframe capture --window' expects.`,
	Example: `  # List windows in table format (default)
  snapframe windows

  # List windows in JSON format
  snapframe windows --format json`,
	RunE: runWindows,
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List background gradient presets",
	Long:  `List the built-in gradient presets and the aspect ratio presets.`,
	RunE:  runPresets,
}

var listFormat string

func init() {
	rootCmd.AddCommand(windowsCmd)
	rootCmd.AddCommand(presetsCmd)

	windowsCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table or json)")
	presetsCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table or json)")
}

func runWindows(cmd *cobra.Command, args []string) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}

	router, err := capture.Open(cfg.Capture.Backend, false)
	if err != nil {
		return err
	}
	defer router.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	windows, err := router.ListWindows(ctx)
	if err != nil {
		return fmt.Errorf("failed to list windows: %w", err)
	}

	switch listFormat {
	case "json":
		return printJSON(windows)
	case "table":
		return printWindowsTable(windows)
	default:
		return fmt.Errorf("unsupported format: %s (use 'table' or 'json')", listFormat)
	}
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func printWindowsTable(windows []capture.WindowInfo) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tAPP\tGEOMETRY\tTITLE")
	fmt.Fprintln(w, "--\t---\t--------\t-----")

	for _, win := range windows {
		b := win.Bounds
		fmt.Fprintf(w, "0x%x\t%s\t%.0fx%.0f+%.0f+%.0f\t%s\n",
			win.ID, win.AppName, b.Width, b.Height, b.X, b.Y, win.Title)
	}

	return nil
}

func runPresets(cmd *cobra.Command, args []string) error {
	presets := background.Presets()

	if listFormat == "json" {
		return printJSON(map[string]interface{}{
			"gradients":     presets,
			"aspect_ratios": geometry.AspectRatioPresets,
		})
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "GRADIENT\tKIND\tCOLORS")
	fmt.Fprintln(w, "--------\t----\t------")
	for _, p := range presets {
		colors := make([]string, len(p.Colors))
		for i, c := range p.Colors {
			colors[i] = c.Hex()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Name, p.Kind, strings.Join(colors, " "))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "ASPECT RATIO\tVALUE\t")
	fmt.Fprintln(w, "------------\t-----\t")
	for _, a := range geometry.AspectRatioPresets {
		value := "freeform"
		if a.Ratio != nil {
			value = fmt.Sprintf("%.4f", *a.Ratio)
		}
		fmt.Fprintf(w, "%s\t%s\t\n", a.Label, value)
	}
	return nil
}
