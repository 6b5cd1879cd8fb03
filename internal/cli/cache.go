package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/fractal/internal/config"
	"github.com/matzehuels/fractal/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the rendered artifact cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			ch, err := c.openCache(ctx, cfg.Cache, false)
			if err != nil {
				return err
			}
			defer ch.Close()

			clearer, ok := ch.(cache.Clearer)
			if !ok {
				printInfo("Cache is disabled")
				return nil
			}
			if err := clearer.Clear(ctx); err != nil {
				return err
			}
			printSuccess("Cleared %s cache", cfg.Cache.Driver)
			if cfg.Cache.Driver == config.CacheFile {
				printDetail("Directory: %s", cfg.Cache.Dir)
			}
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where artifacts are cached",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			switch cfg.Cache.Driver {
			case config.CacheRedis:
				fmt.Fprintf(cmd.OutOrStdout(), "redis://%s/%s*\n", cfg.Cache.RedisAddr, cfg.Cache.RedisPrefix)
			case config.CacheNone:
				fmt.Fprintln(cmd.OutOrStdout(), "none")
			default:
				fmt.Fprintln(cmd.OutOrStdout(), cfg.Cache.Dir)
			}
			return nil
		},
	}
}
