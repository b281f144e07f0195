package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/topicmesh/connection"
	"github.com/hupe1980/topicmesh/core"
	"github.com/hupe1980/topicmesh/correlate"
	"github.com/hupe1980/topicmesh/monitor"
)

func newTopicCmd() *cobra.Command {
	topicCmd := &cobra.Command{Use: "topic", Short: "Topic commands"}

	createCmd := &cobra.Command{
		Use:   "create [memo]",
		Short: "Create a topic and print its id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			memo := ""
			if len(args) == 1 {
				memo = args[0]
			}

			id, err := a.store.CreateTopic(cmd.Context(), memo)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	topicCmd.AddCommand(createCmd)

	return topicCmd
}

func newSendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <topic> <payload>",
		Short: "Append a message to a topic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			account, _ := cmd.Flags().GetString("account")
			memo, _ := cmd.Flags().GetString("memo")

			receipt, err := a.client(account, "").Send(cmd.Context(), args[0], args[1], memo)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent #%d to %s\n", receipt.SequenceNumber, receipt.TopicID)
			return nil
		},
	}
	cmd.Flags().String("account", "0.0.1", "sending account id")
	cmd.Flags().String("memo", "", "entry memo")
	return cmd
}

func newAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <topic> <question>",
		Short: "Send a query and wait for the correlated response",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			account, _ := cmd.Flags().GetString("account")
			canHandle, _ := cmd.Flags().GetBool("can-handle")
			fallback, _ := cmd.Flags().GetString("fallback")

			ctx, cancel := signalContext()
			defer cancel()

			client := a.client(account, "")
			requestID := time.Now().UnixMilli()
			payload, err := core.EncodePayload(core.NewQuery(requestID, args[1], core.QueryParameters{CanHandle: canHandle}))
			if err != nil {
				return err
			}
			if _, err := client.Send(ctx, args[0], payload, "query"); err != nil {
				return err
			}

			resp, ok, err := correlate.WaitForResponse(ctx, client, args[0], requestID, func(o *correlate.Options) {
				o.MaxAttempts = a.cfg.Correlator.MaxAttempts
				o.Delay = a.cfg.Correlator.Delay
				o.Logger = a.logger
				o.Metrics = a.metrics
			})
			if err != nil {
				return err
			}

			resp = correlate.OrFallback(resp, ok, core.NewResponse(requestID, fallback, args[1]))
			return printJSON(cmd, resp)
		},
	}
	cmd.Flags().String("account", "0.0.1", "asking account id")
	cmd.Flags().Bool("can-handle", false, "ask for a yes/no capability answer")
	cmd.Flags().String("fallback", "No response received in time.", "answer used when the peer does not reply")
	return cmd
}

func newConnectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect <inbound-topic>",
		Short: "Request a connection to an agent and wait for confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			account, _ := cmd.Flags().GetString("account")
			inbound, _ := cmd.Flags().GetString("inbound")
			memo, _ := cmd.Flags().GetString("memo")

			ctx, cancel := signalContext()
			defer cancel()

			client := a.client(account, inbound)
			if client.InboundTopicID() == "" {
				if _, err := client.CreateInboundTopic(ctx); err != nil {
					return err
				}
			}

			m := connection.New(client, client.InboundTopicID(), func(o *connection.Options) {
				o.ConfirmAttempts = a.cfg.Connection.ConfirmAttempts
				o.ConfirmInterval = a.cfg.Connection.ConfirmInterval
				o.Logger = a.logger
				o.Metrics = a.metrics
			})

			ev, err := m.InitiateConnection(ctx, args[0], memo)
			if err != nil {
				return err
			}
			return printJSON(cmd, ev)
		},
	}
	cmd.Flags().String("account", "0.0.1", "requesting account id")
	cmd.Flags().String("inbound", "", "requesting account's inbound topic (created when empty)")
	cmd.Flags().String("memo", "", "connection request memo")
	return cmd
}

func newTailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail <topic>",
		Short: "Print the messages of a topic as they arrive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			fromStart, _ := cmd.Flags().GetBool("from-start")

			ctx, cancel := signalContext()
			defer cancel()

			m := monitor.New(a.client("", ""), args[0], func(o *monitor.Options) {
				o.PollInterval = a.cfg.Monitor.PollInterval
				if !fromStart {
					o.StartAfter = time.Now()
				}
				o.Logger = a.logger
				o.Metrics = a.metrics
			})
			m.AddObserver(core.MessageObserverFuncs{
				Message: func(msg core.Message) { _ = printJSON(cmd, msg) },
				Error:   func(err error) { a.logger.Error("%v", err) },
			})
			m.Start(ctx)
			<-m.Done()

			return nil
		},
	}
	cmd.Flags().Bool("from-start", false, "replay the topic from its first entry")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
