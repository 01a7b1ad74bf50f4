package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/apmishra/gai-symptom-resolver/internal/audit"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "resolver",
		Short:         "Extract symptoms from notes or reports and explore possible causes and remedies",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, flags, func(ctx context.Context, env *runtimeEnv) error {
				return runREPL(ctx, env, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: user config dir)")
	pf.StringVar(&flags.provider, "provider", "", "generation provider: gemini|openai|anthropic|ollama")
	pf.StringVar(&flags.model, "model", "", "model name")
	pf.StringVar(&flags.storage, "storage", "", "storage backend: file|sqlite|memory")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug|info|warn|error")
	pf.BoolVar(&flags.showLog, "show-log", false, "print the debug log before exiting")

	root.AddCommand(newREPLCmd(flags))
	root.AddCommand(newAnalyzeCmd(flags))
	root.AddCommand(newExtractCmd(flags))
	root.AddCommand(newConfirmCmd(flags))
	root.AddCommand(newAskCmd(flags))
	root.AddCommand(newHistoryCmd(flags))
	root.AddCommand(newKeyCmd(flags))
	root.AddCommand(newConfigCmd(flags))
	return root
}

// withEnv prepares the runtime, runs fn and tears everything down.
func withEnv(cmd *cobra.Command, flags *globalFlags, fn func(context.Context, *runtimeEnv) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	env, err := prepareRuntimeEnv(ctx, flags)
	if err != nil {
		return err
	}
	defer env.Close()

	runErr := fn(ctx, env)
	if env.showLog {
		w := cmd.ErrOrStderr()
		_, _ = fmt.Fprintln(w, "--- debug log ---")
		renderLog(w, env.Audit.Entries())
	}
	return runErr
}

func newREPLCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Run the interactive session (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, flags, func(ctx context.Context, env *runtimeEnv) error {
				return runREPL(ctx, env, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
}

// saveKey stores or clears the credential and drops the cached client.
func saveKey(ctx context.Context, env *runtimeEnv, key string) error {
	if err := env.Keys.Save(ctx, key); err != nil {
		return err
	}
	env.Gen.Reset()
	env.Audit.Record(audit.TypeInfo, "API Key updated.", nil)
	return nil
}
