package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sgst/sgst-api/internal/config"
	"github.com/sgst/sgst-api/internal/queue"
)

var consumeCmd = &cobra.Command{
	Use:   "consume-events",
	Short: "Consume domain events and write them to the audit log",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger := newLogger(envOr("APP_ENV", "prod"))
		err := queue.NewConsumer(config.AMQPURL(), logger).Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(consumeCmd)
}
