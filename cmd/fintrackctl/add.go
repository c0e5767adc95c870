package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/dashboard"
	"fintrack/internal/ports"
	"fintrack/internal/services"
)

func addCmd(a *app) *cobra.Command {
	var user string
	raw := map[string]*string{}
	field := func(name string) *string {
		v := new(string)
		raw[name] = v
		return v
	}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record an income or an expense",
		Example: `  fintrackctl add --user alice --kind income --amount 1000 --description Salary --category Salary --account Checking
  fintrackctl add --user alice --kind expense --amount 250.50 --description Groceries --category Food --method Card --merchant Market`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			fields := make(map[string]string, len(raw))
			for k, v := range raw {
				fields[k] = *v
			}
			if fields[core.FieldDate] == "" {
				fields[core.FieldDate] = time.Now().In(a.cfg.Location()).Format(core.DateLayout)
			}

			publisher, closePublisher := a.publisher(ctx)
			defer closePublisher()

			dash := dashboard.NewService(a.store, dashboard.Config{
				FetchTimeout: a.cfg.FetchTimeout,
				Location:     a.cfg.Location(),
			})
			created, err := services.NewTransactionService(a.store, dash, publisher).Create(ctx, user, fields)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), created.Message())
			fmt.Fprintln(cmd.OutOrStdout(), "id:", created.Transaction.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user id (required)")
	cmd.Flags().StringVar(field(core.FieldKind), "kind", "", "income or expense (required)")
	cmd.Flags().StringVar(field(core.FieldAmount), "amount", "", "positive amount, e.g. 100.50 (required)")
	cmd.Flags().StringVar(field(core.FieldDate), "date", "", "YYYY-MM-DD; defaults to today")
	cmd.Flags().StringVar(field(core.FieldDescription), "description", "", "free text (required)")
	cmd.Flags().StringVar(field(core.FieldCategory), "category", "", "category (required)")
	cmd.Flags().StringVar(field(core.FieldDestinationAccount), "account", "", "destination account, for income")
	cmd.Flags().StringVar(field(core.FieldPaymentMethod), "method", "", "payment method, for expenses")
	cmd.Flags().StringVar(field(core.FieldMerchant), "merchant", "", "merchant, for expenses")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

// publisher connects to the broker when one is configured so recorded
// transactions still reach the Sheets mirror. A broker outage is not fatal.
func (a *app) publisher(ctx context.Context) (ports.RecordPublisher, func()) {
	if a.cfg.AMQPURL == "" {
		return nil, func() {}
	}
	client, err := amqp.NewClient(ctx, amqp.Config{
		URL:             a.cfg.AMQPURL,
		ExchangeName:    a.cfg.AMQPExchange,
		QueueName:       a.cfg.AMQPQueue,
		ConnectAttempts: 1,
	})
	if err != nil {
		a.logger.Warn("AMQP unavailable, transaction will not be mirrored", "error", err)
		return nil, func() {}
	}
	return client, func() { _ = client.Close() }
}
