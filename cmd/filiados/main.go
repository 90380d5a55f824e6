package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"filiados/internal/app"
	"filiados/internal/config"
	"filiados/internal/credentials"
	"filiados/internal/tui"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filiados",
		Short: "Look up registrants and record contact updates",
		Long: `filiados finds a registrant in the local table by birth date or name,
shows the contact details on file and appends the requested corrections
as a new row of the responses spreadsheet.

Quick start:
  filiados credentials set service_account.json
  filiados check
  filiados form`,
		SilenceUsage: true,
	}

	cmd.AddCommand(formCmd())
	cmd.AddCommand(serveCmd())
	cmd.AddCommand(checkCmd())
	cmd.AddCommand(credentialsCmd())
	cmd.AddCommand(cacheCmd())
	return cmd
}

func formCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "form",
		Short: "Run the interactive update form",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			must(err)
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			svc, closeSink, err := app.Build(ctx, cfg)
			must(err)
			defer closeSink()

			err = tui.Run(ctx, svc)
			if errors.Is(err, tui.ErrAborted) {
				fmt.Println("cancelado")
				return
			}
			must(err)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and watch the table for changes",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			must(err)
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			svc, closeSink, err := app.Build(ctx, cfg)
			must(err)
			defer closeSink()

			must(app.Serve(ctx, cfg, svc))
		},
	}
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Load the table, resolve its columns and open the sink without writing",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			must(err)
			svc, closeSink, err := app.Build(context.Background(), cfg)
			must(err)
			defer closeSink()

			loc, err := svc.Locator()
			must(err)
			fmt.Printf("table ok path=%s rows=%d multi=%t\n", svc.TablePath(), loc.Size(), svc.Multi())
			if svc.Multi() {
				fmt.Printf("municipalities=%d\n", len(loc.Municipalities()))
			}
			fmt.Printf("sink ok backend=%s target=%s\n", cfg.Sink, svc.Target())
			fmt.Printf("header=%s\n", strings.Join(svc.Header(), ","))
		},
	}
}

func credentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage the Google service-account key",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <service_account.json>",
		Short: "Store a service-account key in the OS keyring",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			must(err)
			blob, err := os.ReadFile(args[0])
			must(err)
			must(credentials.Store(cfg.KeyringService, blob))
			fmt.Printf("credentials stored service=%s account=%s\n", cfg.KeyringService, credentials.ClientEmail(blob))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show which credential source would be used",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			must(err)
			blob, from, err := credentials.DefaultChain(cfg.KeyringService, cfg.CredentialsFile).Resolve()
			if errors.Is(err, credentials.ErrNotFound) {
				fmt.Println("credentials not configured")
				os.Exit(1)
			}
			must(err)
			fmt.Printf("credentials ok source=%s account=%s\n", from, credentials.ClientEmail(blob))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Remove the key stored in the OS keyring",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			must(err)
			must(credentials.Delete(cfg.KeyringService))
			fmt.Printf("credentials removed service=%s\n", cfg.KeyringService)
		},
	})
	return cmd
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the table cache of a running server",
	}

	var addr string
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Make a running server reload the table on the next request",
		Run: func(cmd *cobra.Command, args []string) {
			if addr == "" {
				cfg, err := config.Load()
				must(err)
				addr = "http://localhost" + cfg.HTTPAddr
				if !strings.HasPrefix(cfg.HTTPAddr, ":") {
					addr = "http://" + cfg.HTTPAddr
				}
			}
			client := &http.Client{Timeout: 10 * time.Second}
			resp, err := client.Post(strings.TrimRight(addr, "/")+"/api/table/invalidate", "application/json", nil)
			must(err)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				must(fmt.Errorf("server answered %s", resp.Status))
			}
			fmt.Printf("cache cleared addr=%s\n", addr)
		},
	}
	clearCmd.Flags().StringVar(&addr, "addr", "", "server base URL (default from HTTP_ADDR)")
	cmd.AddCommand(clearCmd)
	return cmd
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
