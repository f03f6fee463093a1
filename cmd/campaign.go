package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/muniwatch/core/campaign"
)

var flagOut string

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Create, list and validate campaign files",
}

var campaignInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a campaign file from a preset or the default campaign",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadCampaign("", flagPreset)
		if err != nil {
			return err
		}
		if err := campaign.Save(flagOut, *c); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "✓ Written: %s (%s)\n", flagOut, c.Name)
		return nil
	},
}

var campaignValidateCmd = &cobra.Command{
	Use:   "validate <campaign.json>",
	Short: "Check a campaign file and print its summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := campaign.Load(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "✓ %s\n", c.Name)
		fmt.Fprintf(os.Stdout, "  keywords: %d priority, %d secondary, %d budget\n",
			len(c.Keywords.Priority), len(c.Keywords.Secondary), len(c.Keywords.Budget))
		fmt.Fprintf(os.Stdout, "  threshold %d, window %d days, maturity floor %s\n",
			c.Threshold(), c.WindowDays, c.MaturityFloor)
		fmt.Fprintf(os.Stdout, "  departments: %s\n", strings.Join(c.Zones.Departments, ", "))
		fmt.Fprintf(os.Stdout, "  sites: %d targeted of %d\n", len(c.TargetSites()), len(c.Sites))
		return nil
	},
}

var campaignPresetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List the built-in campaign presets",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range campaign.PresetNames() {
			p, _ := campaign.Preset(name)
			fmt.Fprintf(os.Stdout, "%-22s %s\n", name, p.Name)
		}
	},
}

func init() {
	rootCmd.AddCommand(campaignCmd)
	campaignCmd.AddCommand(campaignInitCmd, campaignValidateCmd, campaignPresetsCmd)

	campaignInitCmd.Flags().StringVar(&flagPreset, "preset", "", "Preset name (see `campaign presets`)")
	campaignInitCmd.Flags().StringVar(&flagOut, "out", "campaign.json", "Destination file")
}
