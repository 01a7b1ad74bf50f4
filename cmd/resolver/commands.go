package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/apmishra/gai-symptom-resolver/internal/config"
	"github.com/apmishra/gai-symptom-resolver/internal/contracts"
	"github.com/apmishra/gai-symptom-resolver/internal/logging"
	"github.com/apmishra/gai-symptom-resolver/internal/prompts"
	"github.com/apmishra/gai-symptom-resolver/internal/providers"
	"github.com/apmishra/gai-symptom-resolver/internal/workflow"
)

// cliError keeps the short message first and the cause for scripts.
func cliError(err error) error {
	msg := describeError(err)
	if msg == err.Error() {
		return err
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// inputText returns args joined, or stdin when no args are given.
func inputText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

// submit runs extraction for a new session from --file or text.
func submit(ctx context.Context, cmd *cobra.Command, env *runtimeEnv, file string, args []string) (string, error) {
	id, err := env.Orch.NewSession(ctx)
	if err != nil {
		return "", err
	}
	if file != "" {
		err = env.Orch.SubmitDocument(ctx, id, file)
	} else {
		var text string
		if text, err = inputText(cmd, args); err != nil {
			return "", err
		}
		err = env.Orch.SubmitText(ctx, id, text)
	}
	if err != nil {
		return "", cliError(err)
	}
	return id, nil
}

func printResults(w io.Writer, env *runtimeEnv, id string, asJSON bool) error {
	v, err := env.Orch.View(id)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v.Session)
	}
	renderView(w, v)
	return nil
}

func newAnalyzeCmd(flags *globalFlags) *cobra.Command {
	var file, add string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Extract symptoms, confirm all of them and print the analysis",
		Long:  "Runs the whole workflow in a new session. Text is read from the arguments, from --file (PDF), or from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, flags, func(ctx context.Context, env *runtimeEnv) error {
				id, err := submit(ctx, cmd, env, file, args)
				if err != nil {
					return err
				}
				if err := env.Orch.ConfirmSymptoms(ctx, id, add); err != nil {
					return cliError(err)
				}
				return printResults(cmd.OutOrStdout(), env, id, asJSON)
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "PDF report to read instead of text")
	cmd.Flags().StringVar(&add, "add", "", "extra symptoms, comma or newline separated")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the session as JSON")
	return cmd
}

func newExtractCmd(flags *globalFlags) *cobra.Command {
	var file string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "extract [text]",
		Short: "Extract symptoms into a new session and stop at confirmation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, flags, func(ctx context.Context, env *runtimeEnv) error {
				id, err := submit(ctx, cmd, env, file, args)
				if err != nil {
					return err
				}
				if !asJSON {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session: %s\n", id)
				}
				return printResults(cmd.OutOrStdout(), env, id, asJSON)
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "PDF report to read instead of text")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the session as JSON")
	return cmd
}

func newConfirmCmd(flags *globalFlags) *cobra.Command {
	var add string
	var toggle []int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "confirm <session-id>",
		Short: "Analyse the confirmed symptoms of a saved session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, flags, func(ctx context.Context, env *runtimeEnv) error {
				id := args[0]
				for _, n := range toggle {
					if err := env.Orch.ToggleSymptom(ctx, id, n-1); err != nil {
						return cliError(err)
					}
				}
				if err := env.Orch.ConfirmSymptoms(ctx, id, add); err != nil {
					return cliError(err)
				}
				return printResults(cmd.OutOrStdout(), env, id, asJSON)
			})
		},
	}
	cmd.Flags().StringVar(&add, "add", "", "extra symptoms, comma or newline separated")
	cmd.Flags().IntSliceVar(&toggle, "toggle", nil, "1-based positions of symptoms to flip before analysing")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the session as JSON")
	return cmd
}

func newAskCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <session-id> <category> <n> <question>",
		Short: "Ask one question about a solution, answered only from its sources",
		Args:  cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, ok := contracts.ParseCategory(args[1])
			if !ok {
				return fmt.Errorf("unknown category %q", args[1])
			}
			n, err := parseIndex(args[2])
			if err != nil {
				return err
			}
			question := strings.Join(args[3:], " ")
			return withEnv(cmd, flags, func(ctx context.Context, env *runtimeEnv) error {
				answer, err := env.Orch.AskSolution(ctx, args[0], category, n, question)
				if err != nil {
					return cliError(err)
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), answer)
				return nil
			})
		},
	}
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	history := &cobra.Command{Use: "history", Short: "Saved analysis sessions"}

	history.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, flags, func(_ context.Context, env *runtimeEnv) error {
				renderHistory(cmd.OutOrStdout(), env.Orch.Sessions())
				return nil
			})
		},
	})

	var asJSON bool
	show := &cobra.Command{
		Use:   "show <n|id>",
		Short: "Show a session at the step it reached",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, flags, func(ctx context.Context, env *runtimeEnv) error {
				id, err := sessionRef(env.Orch.Sessions(), args[0])
				if err != nil {
					return err
				}
				if err := env.Orch.SelectSession(ctx, id); err != nil {
					return err
				}
				return printResults(cmd.OutOrStdout(), env, id, asJSON)
			})
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "print the session as JSON")

	del := &cobra.Command{
		Use:   "delete <n|id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEnv(cmd, flags, func(ctx context.Context, env *runtimeEnv) error {
				id, err := sessionRef(env.Orch.Sessions(), args[0])
				if err != nil {
					return err
				}
				if err := env.Orch.DeleteSession(ctx, id); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
				return nil
			})
		},
	}

	history.AddCommand(show, del)
	return history
}

func newKeyCmd(flags *globalFlags) *cobra.Command {
	key := &cobra.Command{Use: "key", Short: "Manage the saved API key"}

	key.AddCommand(&cobra.Command{
		Use:   "set [value]",
		Short: "Save the API key (reads one line from stdin when no value is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := ""
			if len(args) == 1 {
				value = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && err != io.EOF {
					return fmt.Errorf("failed to read key: %w", err)
				}
				value = line
			}
			if strings.TrimSpace(value) == "" {
				return fmt.Errorf("empty key; use `key clear` to remove the saved key")
			}
			return withEnv(cmd, flags, func(ctx context.Context, env *runtimeEnv) error {
				if err := saveKey(ctx, env, value); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "api key saved")
				return nil
			})
		},
	})

	key.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the saved API key",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, flags, func(ctx context.Context, env *runtimeEnv) error {
				if err := saveKey(ctx, env, ""); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "api key cleared")
				return nil
			})
		},
	})

	key.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the saved API key, masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEnv(cmd, flags, func(ctx context.Context, env *runtimeEnv) error {
				value, err := env.Keys.Load(ctx)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "api key: %s\n", config.Mask(value))
				return nil
			})
		},
	})
	return key
}

func newConfigCmd(flags *globalFlags) *cobra.Command {
	cfgCmd := &cobra.Command{Use: "config", Short: "Show or change the configuration file"}

	manager := func() (*config.Manager, error) {
		if flags.configDir != "" {
			return config.NewManagerAt(flags.configDir), nil
		}
		return config.NewManager()
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := manager()
			if err != nil {
				return err
			}
			cfg, err := m.Resolve()
			if err != nil {
				return err
			}
			applyFlags(cfg, flags)
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "file: %s\n", m.GetConfigPath())
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(cfg)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "set <field> <value>",
		Short: "Set provider, model, base_url, storage, data_dir, log_level or log_dev",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manager()
			if err != nil {
				return err
			}
			cfg, err := m.Load()
			if err != nil {
				return err
			}
			if err := setField(cfg, args[0], args[1]); err != nil {
				return err
			}
			if err := m.Save(cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "providers",
		Short: "List supported providers",
		Run: func(cmd *cobra.Command, _ []string) {
			for _, p := range providers.Providers() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), p)
			}
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "prompts",
		Short: "List the instruction templates and their versions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return renderPrompts(cmd.OutOrStdout(), prompts.DefaultRegistry())
		},
	})
	return cfgCmd
}

func setField(cfg *config.Config, field, value string) error {
	switch field {
	case "provider":
		if value != "" && !slices.Contains(providers.Providers(), value) {
			return fmt.Errorf("unknown provider %q (supported: %s)", value, strings.Join(providers.Providers(), ", "))
		}
		cfg.Provider = value
	case "model":
		cfg.Model = value
	case "base_url":
		cfg.BaseURL = value
	case "storage":
		cfg.Storage = value
	case "data_dir":
		cfg.DataDir = value
	case "log_level":
		if _, err := logging.ParseLevel(value); err != nil {
			return err
		}
		cfg.LogLevel = value
	case "log_dev":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("log_dev: %w", err)
		}
		cfg.LogDev = b
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return cfg.Validate()
}

var _ workflow.Generator = (*lazyGateway)(nil)
