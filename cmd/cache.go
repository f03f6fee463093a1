package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/muniwatch/crawl"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or flush the section cache",
}

var cacheShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List the cached sections per domain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cache, err := crawl.LoadSectionCache(cfg.Cache.Path)
		if err != nil {
			return err
		}
		snap := cache.Snapshot()
		domains := make([]string, 0, len(snap))
		for d := range snap {
			domains = append(domains, d)
		}
		sort.Strings(domains)
		if len(domains) == 0 {
			fmt.Fprintln(os.Stdout, "Cache is empty.")
		}
		for _, d := range domains {
			fmt.Fprintln(os.Stdout, d)
			for _, e := range snap[d] {
				fmt.Fprintf(os.Stdout, "  %3d  %s  %s\n", e.SuccessCount, e.LastSuccess.Format("2006-01-02"), e.URL)
			}
		}
		return nil
	},
}

var cacheFlushCmd = &cobra.Command{
	Use:   "flush [domain]",
	Short: "Forget one domain, or every domain",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Cache.Path == "" {
			return eris.New("cmd: cache.path is not set")
		}
		cache, err := crawl.LoadSectionCache(cfg.Cache.Path)
		if err != nil {
			return err
		}
		domain := ""
		if len(args) == 1 {
			domain = args[0]
		}
		cache.Flush(domain)
		if err := cache.Save(cfg.Cache.Path); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "✓ Flushed %s\n", firstNonEmpty(domain, "all domains"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheShowCmd, cacheFlushCmd)
}
