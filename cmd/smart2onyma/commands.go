package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	logpkg "smart2onyma/common/logger"
	"smart2onyma/internal/config"
	"smart2onyma/internal/export"
	"smart2onyma/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const serviceName = "smart2onyma"

// historyDateLayouts are accepted by --tariffs-history-from
var historyDateLayouts = []string{"2006-01-02", export.DateLayout}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "Export Smart billing data into Onyma import files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newClientDataCmd(),
		newTariffsCmd(),
		newTariffsSrvCreditCmd(),
		newPolicyCmd(),
		newBaseCompaniesCmd(),
	)
	return root
}

// withService loads configuration, builds the logger and the exporter service for one command
func withService(ctx context.Context, command string, fn func(*service.ExporterService, *zap.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logpkg.NewLogger(cfg.Log.Level, cfg.Log.Format, serviceName)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()
	log = log.With(zap.String("run_id", uuid.NewString()), zap.String("command", command))

	svc, err := service.NewExporterService(cfg, log)
	if err != nil {
		log.Error("Failed to create exporter service", zap.Error(err))
		return err
	}
	defer svc.Stop()

	started := time.Now()
	log.Info("Command started")
	if err := fn(svc, log); err != nil {
		log.Error("Command failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return err
	}
	log.Info("Command finished", zap.Duration("elapsed", time.Since(started)))
	return nil
}

func addOutputFlags(cmd *cobra.Command, out *service.OutputOptions) {
	cmd.Flags().BoolVar(&out.Append, "append", false, "Append new data to the existing export")
	cmd.Flags().BoolVar(&out.Header, "header", false, "Write header rows into truncated export files")
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

func parseHistoryDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range historyDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid --tariffs-history-from %q, want YYYY-MM-DD or DD.MM.YYYY", s)
}

func newClientDataCmd() *cobra.Command {
	var (
		opts        service.ClientDataOptions
		accounts    []string
		skip        []string
		items       []string
		historyFrom string
	)

	cmd := &cobra.Command{
		Use:   "clientdata PROFILE...",
		Short: "Export accounts, connections, balances and payments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseHistoryDate(historyFrom)
			if err != nil {
				return err
			}
			if opts.OnError != "" {
				if _, err := export.ParseFailMode(opts.OnError); err != nil {
					return err
				}
			}
			opts.Accounts = splitList(accounts)
			opts.Skip = splitList(skip)
			opts.Items = splitList(items)
			opts.TariffsHistoryFrom = from
			opts.Progress = os.Stdout

			return withService(cmd.Context(), "clientdata", func(svc *service.ExporterService, log *zap.Logger) error {
				return svc.ClientData(cmd.Context(), args, opts)
			})
		},
	}

	addOutputFlags(cmd, &opts.OutputOptions)
	cmd.Flags().StringSliceVar(&accounts, "accounts", nil, "Export only these account numbers")
	cmd.Flags().StringSliceVar(&skip, "skip", nil, "Account numbers to leave out")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "Stop after this many accounts (overrides the profile limit)")
	cmd.Flags().StringSliceVar(&items, "items", nil, "Export items: accounts,attributes,connections,balances,payments (default all)")
	cmd.Flags().StringVar(&historyFrom, "tariffs-history-from", "", "Export tariff history starting at this date")
	cmd.Flags().StringVar(&opts.ImportConnections, "import-connections", "", "Prior connections list to reuse usrconnid values from")
	cmd.Flags().StringVar(&opts.OnError, "on-error", "", "stop or continue after a failed account (default from profile)")
	return cmd
}

func newTariffsCmd() *cobra.Command {
	var out service.OutputOptions
	cmd := &cobra.Command{
		Use:   "tariffs PROFILE...",
		Short: "Export tariffs with prices and policies",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), "tariffs", func(svc *service.ExporterService, log *zap.Logger) error {
				return svc.Tariffs(cmd.Context(), args, out)
			})
		},
	}
	addOutputFlags(cmd, &out)
	return cmd
}

func newTariffsSrvCreditCmd() *cobra.Command {
	var out service.OutputOptions
	cmd := &cobra.Command{
		Use:   "tariffs-srv-credit PROFILE...",
		Short: "Export tariffs of services sold on credit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), "tariffs-srv-credit", func(svc *service.ExporterService, log *zap.Logger) error {
				return svc.TariffsSrvCredit(cmd.Context(), args, out)
			})
		},
	}
	addOutputFlags(cmd, &out)
	return cmd
}

func newPolicyCmd() *cobra.Command {
	var out service.OutputOptions
	cmd := &cobra.Command{
		Use:   "policy PROFILE...",
		Short: "Export RADIUS policies as connections of the base account",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), "policy", func(svc *service.ExporterService, log *zap.Logger) error {
				return svc.Policy(cmd.Context(), args, out)
			})
		},
	}
	addOutputFlags(cmd, &out)
	return cmd
}

func newBaseCompaniesCmd() *cobra.Command {
	var xlsx string
	cmd := &cobra.Command{
		Use:   "base-companies PROFILE",
		Short: "List base companies with their account counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), "base-companies", func(svc *service.ExporterService, log *zap.Logger) error {
				return svc.BaseCompanies(cmd.Context(), args[0], cmd.OutOrStdout(), xlsx)
			})
		},
	}
	cmd.Flags().StringVar(&xlsx, "xlsx", "", "Also save the table to this spreadsheet")
	return cmd
}
