package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-chat/internal/chat"
	"github.com/spec-kit/ticket-chat/internal/config"
	"github.com/spec-kit/ticket-chat/internal/console"
	"github.com/spec-kit/ticket-chat/internal/directory"
	"github.com/spec-kit/ticket-chat/internal/notify"
	"github.com/spec-kit/ticket-chat/internal/observability"
	"github.com/spec-kit/ticket-chat/internal/persistence"
)

var (
	apiURL    string
	email     string
	password  string
	backend   string
	policy    string
	company   string
	ticket    string
	replayAll bool
	noColor   bool
	debug     bool
)

var rootCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive ticket chat session",
	Long: `chat opens a session against the ticket chat API: pick a company, open a
ticket, read its thread and reply. New messages on other tickets arrive as
notifications over Redis Streams or RabbitMQ.`,
	RunE:          runSession,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an agent account with the configured email and password",
	RunE:  runRegister,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&apiURL, "api-url", "", "directory API base URL (default $CHAT_API_URL)")
	flags.StringVar(&email, "email", "", "agent email (default $CHAT_API_EMAIL)")
	flags.StringVar(&password, "password", "", "agent password (default $CHAT_API_PASSWORD)")
	flags.BoolVar(&debug, "debug", false, "log at debug level to stderr")

	rootCmd.Flags().StringVar(&backend, "backend", "", "notification backend: redis or amqp (default $NOTIFY_BACKEND)")
	rootCmd.Flags().StringVar(&policy, "policy", "", "notification policy: coalesce or stack (default $CHAT_NOTIFICATION_POLICY)")
	rootCmd.Flags().StringVar(&company, "company", "", "company id to open on start")
	rootCmd.Flags().StringVar(&ticket, "ticket", "", "ticket id to open on start (needs --company)")
	rootCmd.Flags().BoolVar(&replayAll, "replay-all", false, "deliver retained notifications published before the session started")
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(registerCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if apiURL != "" {
		cfg.Client.APIURL = apiURL
	}
	if email != "" {
		cfg.Client.Email = email
	}
	if password != "" {
		cfg.Client.Password = password
	}
	switch backend {
	case "":
	case config.BackendRedis, config.BackendAMQP:
		cfg.Notification.Backend = backend
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}
	if policy != "" {
		cfg.Notification.Policy = policy
	}
	if replayAll {
		cfg.Notification.Replay = int64(notify.ReplayAll)
	}

	// the terminal belongs to the session; logs go to stderr and stay quiet by default
	cfg.Logger.Output = "stderr"
	cfg.Logger.Encoding = "console"
	cfg.Logger.Level = "warn"
	if debug {
		cfg.Logger.Level = "debug"
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

func runRegister(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	agent, err := directory.NewClient(cfg.Client, logger).Register(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "registered %s (%s)\n", agent.Email, agent.ID)
	return nil
}

func runSession(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	notificationPolicy, err := chat.ParsePolicy(cfg.Notification.Policy)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	channel, closeChannel := openChannel(ctx, cfg, logger)
	defer closeChannel()

	client := directory.NewClient(cfg.Client, logger)
	if err := client.Login(ctx); err != nil {
		return err
	}

	controller := chat.NewController(client, channel, logger,
		chat.WithChannel(cfg.Notification.Channel, notify.ReplayPolicy(cfg.Notification.Replay)),
		chat.WithPolicy(notificationPolicy),
	)
	session := console.New(controller, cmd.OutOrStdout(), !noColor)
	defer session.Attach()()

	// fetch failures are already shown as notices
	_ = controller.Initialize(ctx)
	defer func() {
		teardownCtx, cancel := context.WithTimeout(context.Background(), cfg.Client.RequestTimeout())
		defer cancel()
		controller.Teardown(teardownCtx)
	}()

	if company != "" {
		session.Execute(ctx, "/company "+company)
		if ticket != "" {
			session.Execute(ctx, "/ticket "+ticket)
		}
	}
	return session.Run(ctx, cmd.InOrStdin())
}

// openChannel connects the configured notification backend. A connection
// failure leaves the session without live notifications rather than aborting it.
func openChannel(ctx context.Context, cfg *config.Config, logger *zap.Logger) (notify.Channel, func()) {
	switch cfg.Notification.Backend {
	case config.BackendAMQP:
		conn, err := notify.DialWithRetry(ctx, notify.DialOptions{
			URL:           cfg.AMQP.URL,
			RetryAttempts: cfg.AMQP.RetryAttempts,
			Delay:         cfg.AMQP.RetryDelay(),
			Logger:        logger,
		})
		if err != nil {
			logger.Warn("rabbitmq unavailable; live notifications disabled", zap.Error(err))
			return nil, func() {}
		}
		return notify.NewAMQPChannel(conn, cfg.AMQP.Exchange, logger), func() { _ = conn.Close() }
	default:
		redis := persistence.NewRedis(cfg.Redis, logger)
		return notify.NewRedisChannel(redis.Client, cfg.Notification.BlockTimeout(), logger), redis.Close
	}
}
