package main

import (
	"context"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/hupe1980/topicmesh"
	"github.com/hupe1980/topicmesh/config"
	"github.com/hupe1980/topicmesh/internal/util"
	"github.com/hupe1980/topicmesh/model"
	"github.com/hupe1980/topicmesh/model/anthropic"
	"github.com/hupe1980/topicmesh/model/openai"
	"github.com/hupe1980/topicmesh/runner"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Host all configured agents until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(a.cfg.Agents) == 0 {
				return fmt.Errorf("no agents configured")
			}

			ctx, cancel := signalContext()
			defer cancel()

			mesh := a.mesh()
			defer mesh.Stop()

			for _, ac := range a.cfg.Agents {
				if err := a.host(ctx, mesh, ac); err != nil {
					a.logger.Error("Error hosting agent %s: %v", ac.Name, err)
				}
			}

			a.logger.Info("Hosting %d agent(s), press Ctrl+C to stop", len(mesh.Agents()))
			<-ctx.Done()

			return nil
		},
	}
}

func (a *app) mesh() *topicmesh.Mesh {
	cfg := a.cfg
	return topicmesh.New(a.store, func(o *topicmesh.Options) {
		o.LargeContentThreshold = cfg.LargeContentThreshold
		o.Runner = func(o *runner.Options) {
			o.PoolSize = cfg.PoolSize
			o.ConnectionPollInterval = cfg.Connection.PollInterval
			o.ConfirmAttempts = cfg.Connection.ConfirmAttempts
			o.ConfirmInterval = cfg.Connection.ConfirmInterval
			o.MonitorPollInterval = cfg.Monitor.PollInterval
			o.MaxAttempts = cfg.Correlator.MaxAttempts
			o.Delay = cfg.Correlator.Delay
		}
		o.Logger = a.logger
		o.Metrics = a.metrics
	})
}

func (a *app) host(ctx context.Context, mesh *topicmesh.Mesh, ac config.AgentConfig) error {
	answerer, err := newAnswerer(ac)
	if err != nil {
		return err
	}

	agent, err := mesh.Host(ctx, topicmesh.AgentConfig{
		Name:           ac.Name,
		AccountID:      ac.AccountID,
		InboundTopicID: ac.InboundTopicID,
		Answerer:       answerer,
	})
	if err != nil {
		return err
	}

	if ac.InboundTopicID == "" {
		a.logger.Info("Agent %s listens on new inbound topic %s; set inbound_topic_id to keep it", ac.Name, agent.InboundTopicID())
	}

	for _, target := range ac.Connect {
		go func(target string) {
			ev, err := agent.Connect(ctx, target, "")
			if err != nil {
				a.logger.Error("Agent %s failed to connect to %s: %v", ac.Name, target, err)
				return
			}
			a.logger.Info("Agent %s connected to %s on %s", ac.Name, ev.TargetAccountID, ev.TopicID)
		}(target)
	}

	return nil
}

func newAnswerer(ac config.AgentConfig) (runner.Answerer, error) {
	var m model.Model

	switch ac.Model.Provider {
	case "":
		return nil, nil
	case "mock":
		m = model.NewMockModel(ac.Name)
	case "openai":
		m = openai.NewModel(func(o *openai.Options) {
			if ac.Model.Name != "" {
				o.Model = ac.Model.Name
			}
		})
	case "anthropic":
		m = anthropic.NewModel(func(o *anthropic.Options) {
			if ac.Model.Name != "" {
				o.Model = anthropicsdk.Model(ac.Model.Name)
			}
		})
	default:
		return nil, fmt.Errorf("unknown model provider %q", ac.Model.Provider)
	}

	instructions, err := util.RenderTemplate(ac.Instructions, map[string]any{
		"name":       ac.Name,
		"account_id": ac.AccountID,
	})
	if err != nil {
		return nil, fmt.Errorf("agent %s instructions: %w", ac.Name, err)
	}

	return runner.NewModelAnswerer(m, instructions), nil
}
