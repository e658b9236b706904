package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/bryanchriswhite/snapframe/internal/background"
	"github.com/bryanchriswhite/snapframe/internal/config"
	"github.com/spf13/cobra"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage editor style profiles",
	Long: `Create, apply and delete named sets of editor defaults (padding, corner
radius, shadow and background preset).`,
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	RunE:  runProfilesList,
}

var profilesAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Save the current editor defaults as a profile",
	Long: `Save the current editor defaults, with any flag overrides, as a new
profile.`,
	Example: `  # Snapshot the current defaults
  snapframe profiles add "Blog Post"

  # Create a profile with a gradient and more padding
  snapframe profiles add Slides --preset "Sunset Radial" --padding 80`,
	Args: cobra.ExactArgs(1),
	RunE: runProfilesAdd,
}

var profilesApplyCmd = &cobra.Command{
	Use:   "apply ID",
	Short: "Make a profile the editor defaults",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilesApply,
}

var profilesRemoveCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Delete a profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilesRemove,
}

var (
	profilePreset  string
	profilePadding float64
	profileRadius  float64
)

func init() {
	rootCmd.AddCommand(profilesCmd)
	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesAddCmd)
	profilesCmd.AddCommand(profilesApplyCmd)
	profilesCmd.AddCommand(profilesRemoveCmd)

	profilesAddCmd.Flags().StringVar(&profilePreset, "preset", "", "background gradient preset")
	profilesAddCmd.Flags().Float64Var(&profilePadding, "padding", -1, "padding")
	profilesAddCmd.Flags().Float64Var(&profileRadius, "corner-radius", -1, "corner radius")
}

func runProfilesList(cmd *cobra.Command, args []string) error {
	configMgr, _, err := loadConfig()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tNAME\tPADDING\tRADIUS\tSHADOW\tBACKGROUND")
	fmt.Fprintln(w, "--\t----\t-------\t------\t------\t----------")
	for _, p := range configMgr.ListProfiles() {
		bg := p.Editor.BackgroundPreset
		if bg == "" {
			bg = "(none)"
		}
		fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%g\t%s\n",
			p.ID, p.Name, p.Editor.Padding, p.Editor.CornerRadius, p.Editor.ShadowBlur, bg)
	}
	return nil
}

func runProfilesAdd(cmd *cobra.Command, args []string) error {
	configMgr, _, err := loadConfig()
	if err != nil {
		return err
	}

	editor := configMgr.Get().Editor
	if profilePreset != "" {
		if _, err := background.LookupPreset(profilePreset); err != nil {
			return err
		}
		editor.BackgroundPreset = profilePreset
	}
	if profilePadding >= 0 {
		editor.Padding = profilePadding
	}
	if profileRadius >= 0 {
		editor.CornerRadius = profileRadius
	}

	profile, err := configMgr.CreateProfile(args[0], editor)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	fmt.Printf("✅ Created profile '%s' (%s)\n", profile.Name, profile.ID)
	return nil
}

func runProfilesApply(cmd *cobra.Command, args []string) error {
	configMgr, _, err := loadConfig()
	if err != nil {
		return err
	}

	if err := configMgr.ApplyProfile(args[0]); err != nil {
		return fmt.Errorf("failed to apply profile: %w", err)
	}

	fmt.Printf("✅ Applied profile '%s'\n", args[0])
	return nil
}

func runProfilesRemove(cmd *cobra.Command, args []string) error {
	if args[0] == config.DefaultProfileID {
		return fmt.Errorf("the default profile cannot be removed")
	}

	configMgr, _, err := loadConfig()
	if err != nil {
		return err
	}

	if err := configMgr.DeleteProfile(args[0]); err != nil {
		return fmt.Errorf("failed to remove profile: %w", err)
	}

	fmt.Printf("✅ Removed profile '%s'\n", args[0])
	return nil
}
