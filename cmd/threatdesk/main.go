// Command threatdesk runs the advisory engine, either as an HTTP service or
// for a one-off question on the command line.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/threatdesk/threatdesk"
	"github.com/threatdesk/threatdesk/config"
	"github.com/threatdesk/threatdesk/logging"
	"github.com/threatdesk/threatdesk/model"
	"github.com/threatdesk/threatdesk/model/anthropic"
	"github.com/threatdesk/threatdesk/model/openai"
	"github.com/threatdesk/threatdesk/registry"
	"github.com/threatdesk/threatdesk/router"
	"github.com/threatdesk/threatdesk/server"
	"github.com/threatdesk/threatdesk/tool"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "threatdesk",
		Short: "Multi-specialist cybersecurity advisory engine",
	}
	root.AddCommand(serveCmd(), askCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			advisor, err := buildAdvisor(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(advisor, func(o *server.Options) { o.Logger = logger })
			return srv.ListenAndServe(ctx, cfg.ListenAddr)
		},
	}
}

func askCmd() *cobra.Command {
	var threadID string

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Ask a single question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			advisor, err := buildAdvisor(cfg, logger)
			if err != nil {
				return err
			}

			result, err := advisor.Chat(cmd.Context(), threadID, strings.Join(args, " "))
			if err != nil {
				return err
			}

			fmt.Printf("%s (%s):\n\n%s\n", result.AgentName, result.AgentRole, result.Response)
			if len(result.ToolsUsed) > 0 {
				fmt.Printf("\ntools used: %s\n", strings.Join(result.ToolsUsed, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&threadID, "thread", "", "conversation thread to continue")
	return cmd
}

func buildAdvisor(cfg *config.Config, logger logging.Logger) (*threatdesk.Advisor, error) {
	m, err := buildModel(cfg)
	if err != nil {
		return nil, err
	}

	reg := registry.Default()
	if cfg.ProfilesPath != "" {
		reg, err = registry.LoadFile(cfg.ProfilesPath)
		if err != nil {
			return nil, err
		}
	}

	return threatdesk.New(m, func(o *threatdesk.Options) {
		o.Registry = reg
		o.Logger = logger
		o.RequestTimeout = cfg.RequestTimeout
		o.RouterOptions = []func(ro *router.Options){func(ro *router.Options) {
			ro.SingleThreshold = cfg.RouterSingleThreshold
			ro.MultiThreshold = cfg.RouterMultiThreshold
			ro.MaxFanOut = cfg.RouterMaxFanOut
		}}
		o.ExecutorOptions = []func(eo *tool.ExecutorOptions){func(eo *tool.ExecutorOptions) {
			eo.Timeout = cfg.ToolTimeout
			eo.MaxAttempts = cfg.ToolMaxAttempts
		}}
		o.Tools = tool.Builtin(func(bo *tool.BuiltinOptions) {
			bo.TavilyAPIKey = cfg.TavilyAPIKey
			bo.VirusTotalAPIKey = cfg.VirusTotalAPIKey
			bo.OTXAPIKey = cfg.OTXAPIKey
			bo.ZoomEyeAPIKey = cfg.ZoomEyeAPIKey
			bo.NVDAPIKey = cfg.NVDAPIKey
		})
	})
}

func buildModel(cfg *config.Config) (model.Model, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			if cfg.ModelName != "" {
				o.Model = cfg.ModelName
			}
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = cfg.AnthropicAPIKey
			if cfg.ModelName != "" {
				o.Model = anthropicsdk.Model(cfg.ModelName)
			}
		}), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

func newLogger(cfg *config.Config) logging.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	return logging.New(logging.Config{
		Level:  level,
		Format: cfg.LogFormat,
		Output: os.Stderr,
	})
}
