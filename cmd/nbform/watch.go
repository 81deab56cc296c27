package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	nblifecycle "github.com/aretw0/nbform/pkg/adapters/lifecycle"
	"github.com/aretw0/nbform/pkg/core"
)

var watchTypes []string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print notebook changes as they happen",
	Long: `Watch reports every notebook created, modified or deleted in the directory,
one event per line ("MODIFY reports/q1"), until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		types, err := parseEventTypes(watchTypes)
		if err != nil {
			return err
		}

		_, svc, err := openRepository(true)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		events, err := svc.Watch(ctx)
		if err != nil {
			return err
		}
		src := nblifecycle.NewSource(events, types...)
		if err := src.Start(ctx); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for e := range src.Events() {
			fmt.Fprintln(out, e.String())
		}
		return nil
	},
}

func parseEventTypes(names []string) ([]core.EventType, error) {
	var types []core.EventType
	for _, name := range names {
		t := core.EventType(strings.ToUpper(strings.TrimSpace(name)))
		switch t {
		case core.EventCreate, core.EventModify, core.EventDelete:
			types = append(types, t)
		default:
			return nil, fmt.Errorf("unknown event type %q (want create, modify or delete)", name)
		}
	}
	return types, nil
}

func init() {
	watchCmd.Flags().StringSliceVarP(&watchTypes, "type", "t", nil, "only report these event types (create, modify, delete)")
	rootCmd.AddCommand(watchCmd)
}
