package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"lifeadmin/pkg/agent"
)

// chatSessionKey is the conversation used by the terminal interface.
const chatSessionKey = "cli"

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the assistant in the terminal",
	Long: `Start an interactive chat session. Ask about documents, subscriptions,
or life event checklists in plain language. Type /help for commands.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{needModel: true})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Ctrl+C aborts the in-flight turn, a second one exits.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		_ = a.runner.Abort(chatSessionKey)
		<-sigCh
		cancel()
	}()

	fmt.Printf("🤖 %s (model: %s)\n", a.cfg.Agent.Name, a.cfg.ModelDisplayName())
	fmt.Println("Type /help for commands, /exit to quit.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			exit, err := a.handleSlashCommand(ctx, input)
			if err != nil {
				fmt.Printf("Error: %v\n\n", err)
			}
			if exit {
				return nil
			}
			continue
		}

		result, err := a.runner.Run(ctx, agent.RunParams{
			Prompt:     input,
			SessionKey: chatSessionKey,
			Config:     a.agentConfig(),
		})
		if err != nil {
			fmt.Printf("Error: %v\n\n", err)
			continue
		}
		if result.Aborted {
			fmt.Println("(interrupted)")
			fmt.Println()
			continue
		}

		fmt.Printf("\nAssistant: %s\n\n", result.Response)
	}
}

// handleSlashCommand processes a / command. The bool return means exit.
func (a *app) handleSlashCommand(ctx context.Context, input string) (bool, error) {
	switch strings.ToLower(strings.Fields(input)[0]) {
	case "/exit", "/quit":
		fmt.Println("Bye! 👋")
		return true, nil

	case "/help":
		fmt.Println(`Commands:
  /help    show this help
  /clear   forget the current conversation
  /status  show what the assistant is tracking
  /exit    quit (also /quit)

Anything else is sent to the assistant.`)
		return false, nil

	case "/clear":
		if err := a.sessions.Delete(ctx, chatSessionKey); err != nil {
			return false, err
		}
		fmt.Println("Conversation cleared.")
		return false, nil

	case "/status":
		summary, err := a.trackingSummary(ctx)
		if err != nil {
			return false, err
		}
		fmt.Println(summary)
		return false, nil

	default:
		fmt.Printf("Unknown command %q, try /help\n", input)
		return false, nil
	}
}
