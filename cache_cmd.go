package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/tts/engines"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	clearCache bool

	cacheCmd = &cobra.Command{
		Use:     "cache",
		Short:   "Show or clear the synthesized audio cache",
		Example: paragraph("readaloud cache\nreadaloud cache --clear"),
		Args:    cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			enabled := cfg.Cache.Enabled
			cfg.Cache.Enabled = true

			dc := engines.OpenCache(cfg.Cache, log.Default())
			if dc == nil {
				return fmt.Errorf("unable to open the audio cache in %s", cfg.Cache.Dir)
			}
			defer dc.Close() //nolint:errcheck

			if clearCache {
				st := dc.Stats()
				if err := dc.Clear(); err != nil {
					return fmt.Errorf("unable to clear cache: %w", err)
				}
				fmt.Printf("Removed %s in %s.\n",
					humanize.Comma(int64(st.Items))+" "+plural(st.Items, "clip", "clips"),
					humanize.IBytes(uint64(st.Size))) //nolint:gosec
				return nil
			}

			st := dc.Stats()
			fmt.Println(keyword("audio cache"), faint(st.Dir))
			fmt.Printf("  %s %s of %s in %s %s\n",
				faint("size"),
				humanize.IBytes(uint64(st.Size)),     //nolint:gosec
				humanize.IBytes(uint64(st.Capacity)), //nolint:gosec
				humanize.Comma(int64(st.Items)),
				plural(st.Items, "clip", "clips"))
			if !enabled {
				fmt.Println(faint("  caching is disabled in the config"))
			}
			return nil
		},
	}
)

func init() {
	cacheCmd.Flags().BoolVar(&clearCache, "clear", false, "remove every cached clip")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
