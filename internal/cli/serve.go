package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lifeadmin/pkg/notify"
	"lifeadmin/pkg/session"
	"lifeadmin/pkg/webchat"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web chat server",
	Long: `Start the web interface. Serves the JSON API and WebSocket chat, and
runs the scheduled email digest when notifications are configured.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(appOptions{needModel: true, console: true})
	if err != nil {
		return err
	}
	defer a.Close()

	port := a.cfg.Web.Port
	if servePort > 0 {
		port = servePort
	}

	server, err := webchat.NewServer(webchat.Config{
		Port:        port,
		Store:       a.store,
		AgentRunner: a.runner,
		AgentConfig: a.agentConfig(),
		Logger:      a.log.GetZerolog(),
	})
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start web server: %w", err)
	}

	var scheduler *notify.Scheduler
	if a.cfg.Digest.Enabled {
		scheduler = notify.NewScheduler(a.digest, a.mailer, a.log.GetZerolog())
		if err := scheduler.Start(a.cfg.Digest.Schedule); err != nil {
			return fmt.Errorf("failed to start digest scheduler: %w", err)
		}
		a.log.Info().Str("schedule", a.cfg.Digest.Schedule).Msg("digest scheduler started")
	}

	cleanup := session.NewCleanup(a.sessions, session.DefaultRetentionAge, a.log.GetZerolog())
	if err := cleanup.Start(); err != nil {
		a.log.Warn().Err(err).Msg("failed to start session cleanup")
	}

	a.runMaintenance(cmd.Context())

	fmt.Printf("Life Admin web server listening on http://%s:%d\n", a.cfg.Web.Host, port)
	fmt.Println("Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down...")
	cleanup.Stop()
	if scheduler != nil {
		scheduler.Stop()
	}
	return server.Stop()
}
