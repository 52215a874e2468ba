package main

import (
	"fmt"
	"io"

	"github.com/mark3labs/qaflow/internal/agent"
	"github.com/mark3labs/qaflow/internal/config"
	"github.com/mark3labs/qaflow/internal/llm"
	"github.com/mark3labs/qaflow/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries what every command needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var (
		question  string
		maxRounds int
	)

	rootCmd := &cobra.Command{
		Use:   "qaflow",
		Short: "AI agent - Ask questions about any topic",
		Long: `qaflow answers a question with one model and asks a second model to
check the answer. Rejected answers are sent back with the reviewer's verdict
until the reviewer accepts one.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			if cmd.Flags().Changed("max-rounds") {
				a.cfg.Agent.MaxRounds = maxRounds
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runQA(cmd, question)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "Log format: console or json")
	rootCmd.Flags().StringVar(&question, "question", "", "Question to ask the AI agent")
	rootCmd.Flags().IntVar(&maxRounds, "max-rounds", 0, "Stop after this many answer rounds (0 keeps retrying)")

	rootCmd.AddCommand(
		newFetchCmd(a),
		newSearchCmd(a),
		newChunkCmd(a),
		newYoutubeCmd(a),
		newTTSCmd(a),
		newEmbedCmd(a),
		newLoadCmd(a),
		newIndexDemoCmd(a),
	)
	return rootCmd
}

// load reads the configuration and builds the logger. Flags override config.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.NewLoader().WithConfigPath(a.configPath).Load()
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) runQA(cmd *cobra.Command, question string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Main function called")

	if question == "" {
		q, err := promptQuestion(cmd.InOrStdin(), out)
		if err != nil {
			return fmt.Errorf("read question: %w", err)
		}
		question = q
	}

	logger, runID := logging.ForRun(a.logger, "agent")
	logger.Debug("run started", zap.Int("max_rounds", a.cfg.Agent.MaxRounds))

	client := llm.NewClient(llm.Config{
		APIKey:     a.cfg.LLM.APIKey,
		BaseURL:    a.cfg.LLM.BaseURL,
		Timeout:    a.cfg.LLM.Timeout,
		MaxRetries: a.cfg.LLM.MaxRetries,
	}, logger)

	state, err := agent.Run(cmd.Context(), client, question, agent.Options{
		AnswerModel:    a.cfg.LLM.AnswerModel,
		ValidatorModel: a.cfg.LLM.ValidatorModel,
		MaxRounds:      a.cfg.Agent.MaxRounds,
		Logger:         logger,
	})
	if state != nil {
		printState(out, state)
	}
	if err != nil {
		return fmt.Errorf("run %s: %w", runID, err)
	}
	return nil
}

func printState(w io.Writer, s *agent.State) {
	verdict := "unknown"
	if s.IsCorrect != nil {
		verdict = fmt.Sprint(*s.IsCorrect)
	}
	fmt.Fprintln(w, "Question:", s.Question)
	fmt.Fprintln(w, "Answer:", s.Answer)
	fmt.Fprintln(w, "Is correct:", verdict)
	fmt.Fprintln(w, "Reason:", s.Reason)
}
