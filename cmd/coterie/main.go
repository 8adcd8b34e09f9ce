// Command coterie is an interactive terminal front end for the coterie
// conversation engine: it wires the provider registry, persona store, chat
// service and delegation orchestrator together and runs a REPL over a
// single conversation.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/coterie-ai/coterie/bot"
	"github.com/coterie-ai/coterie/chat"
	"github.com/coterie-ai/coterie/config"
	"github.com/coterie-ai/coterie/conversation"
	"github.com/coterie-ai/coterie/core"
	"github.com/coterie-ai/coterie/delegation"
	"github.com/coterie-ai/coterie/logging"
	"github.com/coterie-ai/coterie/provider"
)

const version = "0.1.0"

var (
	configPath string
	agentName  string
	providerID string
)

// engine bundles the wired services behind the REPL.
type engine struct {
	cfg           *config.Config
	registry      *provider.Registry
	personas      *bot.Service
	conversations *conversation.Service
	delegator     *delegation.Service
}

func buildEngine(cfg *config.Config) (*engine, error) {
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})

	registry := provider.NewRegistry()
	for _, pc := range cfg.Providers {
		if err := registry.Register(pc); err != nil {
			return nil, err
		}
	}

	personas := bot.NewService(bot.NewInMemoryStore())
	store := conversation.NewInMemoryStore()

	chatSvc := chat.NewService(registry, store, personas, func(o *chat.Options) {
		o.SystemInstructions = cfg.SystemInstructions
		o.DelegationEnabled = cfg.Delegation.Enabled
		o.MaxDelegationDepth = cfg.Delegation.MaxDepth
		o.CharsLimit = cfg.ContextWindow.CharsLimit
		o.PersonalMemoryRatio = cfg.ContextWindow.PersonalMemoryRatio
		o.Logger = logger
	})
	delegator := delegation.NewService(store, chatSvc, logger)
	conversations := conversation.NewService(store, chatSvc, delegator, personas, logger)
	chatSvc.SetPeerMessenger(conversations)

	return &engine{
		cfg:           cfg,
		registry:      registry,
		personas:      personas,
		conversations: conversations,
		delegator:     delegator,
	}, nil
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func main() {
	root := &cobra.Command{
		Use:     "coterie",
		Short:   "coterie - delegated multi-agent conversations in your terminal",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context())
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config YAML")
	root.Flags().StringVarP(&agentName, "agent", "a", "", "named agent persona for the conversation")
	root.Flags().StringVarP(&providerID, "provider", "p", "", "provider id (defaults to the first configured)")

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context())
		},
	}
	chatCmd.Flags().StringVarP(&agentName, "agent", "a", "", "named agent persona for the conversation")
	chatCmd.Flags().StringVarP(&providerID, "provider", "p", "", "provider id (defaults to the first configured)")
	root.AddCommand(chatCmd)

	root.AddCommand(&cobra.Command{
		Use:   "providers",
		Short: "List configured providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			eng, err := buildEngine(cfg)
			if err != nil {
				return err
			}
			for _, pc := range eng.registry.List() {
				fmt.Printf("%-16s %-12s %s\n", pc.ID, pc.Vendor, pc.Model)
			}
			return nil
		},
	})

	personaCmd := &cobra.Command{
		Use:   "persona",
		Short: "Manage named agent personas",
	}
	personaCmd.AddCommand(&cobra.Command{
		Use:   "create [name] [soul]",
		Short: "Create a persona with a soul description",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			eng, err := buildEngine(cfg)
			if err != nil {
				return err
			}
			def, err := eng.personas.Create(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("created persona %q\n", def.Name)
			return nil
		},
	})
	root.AddCommand(personaCmd)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runChat(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	pid := providerID
	if pid == "" {
		if list := eng.registry.List(); len(list) > 0 {
			pid = list[0].ID
		}
	}
	if pid == "" {
		return fmt.Errorf("no providers configured; add one to the config file")
	}

	conv, err := eng.conversations.Create("terminal session", pid, agentName, "")
	if err != nil {
		return err
	}

	dim := color.New(color.Faint)
	cyan := color.New(color.FgCyan)
	bold := color.New(color.Bold)

	bold.Printf("coterie %s", version)
	fmt.Printf("  provider=%s", pid)
	if agentName != "" {
		fmt.Printf("  agent=%s", agentName)
	}
	fmt.Println("\ntype a message, or /quit to exit")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			eng.delegator.Wait()
			return scanner.Err()
		case strings.HasPrefix(line, "/provider "):
			newID := strings.TrimSpace(strings.TrimPrefix(line, "/provider "))
			if _, err := eng.conversations.UpdateProvider(conv.ID, newID); err != nil {
				color.Red("%v", err)
				continue
			}
			fmt.Printf("switched to provider %s\n", newID)
			continue
		}

		if err := runTurn(ctx, eng, conv.ID, line, dim, cyan); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			color.Red("%v", err)
		}
	}
	eng.delegator.Wait()
	return scanner.Err()
}

// runTurn streams one turn to the terminal, then waits for any delegated
// sub-agents to reach quiescence and prints the follow-up turns their
// status digests produced on the conversation.
func runTurn(ctx context.Context, eng *engine, conversationID, text string,
	dim, cyan *color.Color) error {

	before, err := eng.conversations.Get(conversationID)
	if err != nil {
		return err
	}
	seen := len(before.Messages)

	done := make(chan core.ChatResult, 1)
	ch, err := eng.conversations.SendMessageStream(ctx, conversationID, text, func(r core.ChatResult) {
		done <- r
	})
	if err != nil {
		return err
	}

	last := core.ChunkAnswer
	for chunk := range ch {
		if chunk.Type != last {
			fmt.Println()
			last = chunk.Type
		}
		switch chunk.Type {
		case core.ChunkReasoning:
			dim.Print(chunk.Content)
		case core.ChunkTool:
			cyan.Println(chunk.Content)
		default:
			fmt.Print(chunk.Content)
		}
	}
	fmt.Println()

	result := <-done
	if len(result.PendingSubConversationIDs) > 0 {
		dim.Printf("waiting on %d sub-agent(s)...\n", len(result.PendingSubConversationIDs))
		eng.delegator.Wait()
		after, err := eng.conversations.Get(conversationID)
		if err != nil {
			return err
		}
		// seen+2 skips the user message and the assistant turn already
		// streamed above
		for _, m := range after.Messages[min(seen+2, len(after.Messages)):] {
			if m.Role != core.RoleAssistant {
				continue
			}
			fmt.Println(core.FlattenParts(m.Content))
		}
	}
	return nil
}
