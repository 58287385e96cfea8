package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/searchktools/fast-gateway/app"
	"github.com/searchktools/fast-gateway/config"
	"github.com/searchktools/fast-gateway/core/http"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gateway",
		Short: "Request-routing and multi-layer caching gateway",
		Long: `gateway routes requests through a radix-tree matcher and a tiered
cache: an in-process memory tier backed by optional shared remote
tiers, with tag-based invalidation and per-route cache policies.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		checkCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			if err := registerRoutes(a); err != nil {
				return err
			}
			return a.Run()
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to JSON config file")
	return cmd
}

// registerRoutes wires the built-in operational routes. Application
// routes are registered by embedders; the binary itself only exposes
// health and cache administration. A registration conflict aborts
// startup.
func registerRoutes(a *app.App) error {
	gw := a.Gateway()

	if err := gw.GET("/healthz", http.HandlerFunc(
		func(ctx context.Context, c *http.Ctx) (*http.Response, error) {
			return c.JSON(200, map[string]string{"status": "ok"}), nil
		})); err != nil {
		return err
	}

	return gw.DELETE("/admin/cache/tags/:tag", http.HandlerFunc(
		func(ctx context.Context, c *http.Ctx) (*http.Response, error) {
			removed := gw.Cache().InvalidateTag(ctx, c.Param("tag"))
			return c.JSON(200, map[string]int{"removed": removed}), nil
		}))
}

func checkCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a config file and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			fmt.Printf("config ok: %d tier(s), listening on %s\n",
				len(cfg.Cache.Tiers), cfg.Server.Addr)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to JSON config file")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gateway %s (%s) %s/%s\n", version, commit, runtime.GOOS, runtime.GOARCH)
		},
	}
}
