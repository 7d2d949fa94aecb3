// Command agentrun drives an interactive coding-assistant agent loop
// against a configured LLM provider and a set of tool executors.
//
// # Basic Usage
//
// Run a single turn:
//
//	agentrun run "list the files in the current directory" --config agentrun.yaml
//
// Start an interactive REPL:
//
//	agentrun chat --config agentrun.yaml
//
// List the tools every configured executor advertises:
//
//	agentrun executors list --config agentrun.yaml
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/haasonsaas/agentrun/internal/agent"
	"github.com/haasonsaas/agentrun/internal/config"
	"github.com/haasonsaas/agentrun/internal/executor"
	"github.com/haasonsaas/agentrun/internal/providers"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "agentrun",
		Short:        "agentrun - a provider-agnostic coding agent loop",
		Version:      fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage: true,
	}
	rootCmd.AddCommand(
		buildRunCmd(),
		buildChatCmd(),
		buildExecutorsCmd(),
	)
	return rootCmd
}

// buildAgent wires a loaded config into a running AgentLoop: a provider
// registry, an executor manager/dispatcher, and the requested strategy.
func buildAgent(cfg *config.Config, logger *slog.Logger) (*agent.AgentLoop, error) {
	specs := make([]providers.Spec, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		shape, err := toShape(p.Config.Type)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", p.ID, err)
		}
		apiKey := ""
		if p.Config.APIKeyEnv != "" {
			apiKey = os.Getenv(p.Config.APIKeyEnv)
		}
		specs = append(specs, providers.Spec{
			ID:     p.ID,
			Shape:  shape,
			APIKey: apiKey,
			Model: providers.ModelConfig{
				Name:     p.Config.Model.Name,
				Endpoint: p.Config.Model.Endpoint,
				Params:   p.Config.Model.Params,
			},
		})
	}
	registry := providers.NewRegistry(http.DefaultClient, logger, specs)
	model, err := registry.Get(cfg.DefaultProvider)
	if err != nil {
		return nil, err
	}

	execConfigs := make([]executor.Config, 0, len(cfg.Executors))
	for _, e := range cfg.Executors {
		execConfigs = append(execConfigs, executor.Config{
			ID:      e.ID,
			Command: e.Command,
			Args:    e.Args,
			Env:     e.Env,
			WorkDir: e.WorkDir,
			Timeout: e.Timeout,
		})
	}
	manager := executor.NewManager(execConfigs, logger)
	dispatcher := executor.NewDispatcher(manager, logger)

	strategy, err := buildStrategy(cfg.Strategy, logger)
	if err != nil {
		return nil, err
	}

	return agent.NewAgentLoop(strategy, model, dispatcher, cfg.MaxIterations, logger), nil
}

func toShape(t config.ProviderType) (providers.Shape, error) {
	switch t {
	case config.ProviderOpenAI:
		return providers.ShapeOpenAI, nil
	case config.ProviderGemini:
		return providers.ShapeGemini, nil
	case config.ProviderLocal:
		return providers.ShapeLocal, nil
	default:
		return "", fmt.Errorf("unrecognized provider type %q", t)
	}
}

func buildStrategy(name config.StrategyName, logger *slog.Logger) (agent.Strategy, error) {
	switch name {
	case config.StrategyCompleteTask:
		return agent.NewCompleteTask(logger), nil
	case config.StrategyConversation:
		return agent.NewConversation(agent.NewCompleteTask(logger)), nil
	case config.StrategyPlanExecute:
		return agent.NewPlanExecute(logger), nil
	default:
		return nil, fmt.Errorf("unrecognized strategy %q", name)
	}
}

func buildRunCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run <prompt>",
		Short: "Run a single agent turn and print the final message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			loop, err := buildAgent(cfg, slog.Default())
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			state := agent.NewAgentState(cfg.SystemPrompt, nil, args[0])
			message, _, err := loop.Run(ctx, state)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), message)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "agentrun.yaml", "Path to YAML configuration file")
	return cmd
}

func buildChatCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive REPL using the conversation strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg.Strategy = config.StrategyConversation
			loop, err := buildAgent(cfg, slog.Default())
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			out := cmd.OutOrStdout()
			scanner := bufio.NewScanner(cmd.InOrStdin())
			var history []agent.Message
			fmt.Fprintln(out, "agentrun chat - type a message, Ctrl-D to quit")
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					break
				}
				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}

				var state *agent.AgentState
				if len(history) == 0 {
					state = agent.NewAgentState(cfg.SystemPrompt, nil, line)
				} else {
					state = agent.NewAgentState("", history, line)
				}

				message, final, err := loop.Run(ctx, state)
				if err != nil {
					fmt.Fprintf(out, "error: %v\n", err)
					continue
				}
				fmt.Fprintln(out, message)
				history = final.Messages
			}
			return scanner.Err()
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "agentrun.yaml", "Path to YAML configuration file")
	return cmd
}

func buildExecutorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "executors",
		Short: "Inspect configured tool executors",
	}
	cmd.AddCommand(buildExecutorsListCmd())
	return cmd
}

func buildExecutorsListCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Connect to every configured executor and print its tool catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			execConfigs := make([]executor.Config, 0, len(cfg.Executors))
			for _, e := range cfg.Executors {
				execConfigs = append(execConfigs, executor.Config{
					ID:      e.ID,
					Command: e.Command,
					Args:    e.Args,
					Env:     e.Env,
					WorkDir: e.WorkDir,
					Timeout: e.Timeout,
				})
			}
			manager := executor.NewManager(execConfigs, slog.Default())
			defer manager.Close()

			out := cmd.OutOrStdout()
			ctx := cmd.Context()
			dispatcher := executor.NewDispatcher(manager, slog.Default())
			catalog, err := dispatcher.Catalog(ctx)
			if err != nil {
				return err
			}
			if len(catalog) == 0 {
				fmt.Fprintln(out, "No tools available.")
				return nil
			}
			for _, tool := range catalog {
				fmt.Fprintf(out, "  - %s: %s\n", tool.Name, tool.Description)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "agentrun.yaml", "Path to YAML configuration file")
	return cmd
}
