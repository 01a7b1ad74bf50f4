package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/apmishra/gai-symptom-resolver/internal/config"
	"github.com/apmishra/gai-symptom-resolver/internal/contracts"
	"github.com/apmishra/gai-symptom-resolver/internal/document"
	"github.com/apmishra/gai-symptom-resolver/internal/gateway"
	"github.com/apmishra/gai-symptom-resolver/internal/session"
	"github.com/apmishra/gai-symptom-resolver/internal/workflow"
)

const replHelp = `commands:
  analyze <text>              extract symptoms from text
  pdf <path>                  extract symptoms from a PDF report
  show                        show the current tab
  toggle <n>                  confirm or unconfirm symptom n
  confirm [a, b, ...]         analyse confirmed symptoms plus extra ones
  ask <category> <n> <q>      ask about solution n of a category
  chat <category> <n>         show the questions asked about a solution
  tab <input|confirmation|results>
  new | history | select <n|id> | delete [n|id] | reset
  log [clear]                 show or clear the debug log
  key [<value>|clear]         show, save or clear the API key
  help | quit`

type repl struct {
	env *runtimeEnv
	out io.Writer
}

func newREPL(env *runtimeEnv, out io.Writer) *repl {
	return &repl{env: env, out: &lockedWriter{w: out}}
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func runREPL(ctx context.Context, env *runtimeEnv, in io.Reader, out io.Writer) error {
	if err := env.Orch.Start(ctx); err != nil {
		return err
	}
	r := newREPL(env, out)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.printProgress(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	if err := env.Gen.Ready(ctx); err != nil {
		fmt.Fprintf(r.out, "No usable API key (%v).\nSave one with `key <value>` before analysing.\n", err)
	}
	fmt.Fprintln(r.out, "Type `help` for commands.")
	r.show()

	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(r.out, "resolver> ")
		if !s.Scan() {
			break
		}
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		quit, err := r.handleLine(ctx, line)
		if err != nil {
			fmt.Fprintf(r.out, "error: %s\n", describeError(err))
			env.Logger.Debug("repl command failed", zap.String("line", line), zap.Error(err))
		}
		if quit {
			return nil
		}
	}
	return s.Err()
}

// printProgress reports long-running steps while they run.
func (r *repl) printProgress(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-r.env.Events:
			switch ev := e.(type) {
			case workflow.ExtractionStarted:
				fmt.Fprintf(r.out, "... extracting symptoms from %s\n", ev.Source)
			case workflow.AnalysisStarted:
				fmt.Fprintf(r.out, "... analysing %d symptoms\n", len(ev.Symptoms))
			case workflow.QueryStarted:
				fmt.Fprintln(r.out, "... asking the source")
			}
		}
	}
}

func (r *repl) handleLine(ctx context.Context, line string) (bool, error) {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	orch := r.env.Orch

	switch strings.ToLower(cmd) {
	case "help", "?":
		fmt.Fprintln(r.out, replHelp)
	case "quit", "exit":
		return true, nil
	case "show":
		r.show()

	case "analyze", "analyse":
		if err := orch.SubmitText(ctx, "", rest); err != nil {
			return false, err
		}
		r.show()
	case "pdf":
		if err := orch.SubmitDocument(ctx, "", rest); err != nil {
			return false, err
		}
		r.show()
	case "toggle":
		n, err := parseIndex(rest)
		if err != nil {
			return false, err
		}
		if err := orch.ToggleSymptom(ctx, "", n); err != nil {
			return false, err
		}
		r.show()
	case "confirm":
		if err := orch.ConfirmSymptoms(ctx, "", rest); err != nil {
			return false, err
		}
		r.show()
	case "ask":
		category, n, question, err := parseSolutionRef(rest, true)
		if err != nil {
			return false, err
		}
		answer, err := orch.AskSolution(ctx, "", category, n, question)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "source> %s\n", answer)
	case "chat":
		category, n, _, err := parseSolutionRef(rest, false)
		if err != nil {
			return false, err
		}
		renderChat(r.out, orch.ChatHistory("", category, n))
	case "tab":
		tab, ok := session.ParseTab(rest)
		if !ok {
			return false, fmt.Errorf("unknown tab %q", rest)
		}
		if err := orch.SelectTab(ctx, "", tab); err != nil {
			return false, err
		}
		r.show()

	case "new":
		if _, err := orch.NewSession(ctx); err != nil {
			return false, err
		}
		r.show()
	case "history":
		renderHistory(r.out, orch.Sessions())
	case "select":
		id, err := sessionRef(orch.Sessions(), rest)
		if err != nil {
			return false, err
		}
		if err := orch.SelectSession(ctx, id); err != nil {
			return false, err
		}
		r.show()
	case "delete":
		id := ""
		if rest != "" {
			var err error
			if id, err = sessionRef(orch.Sessions(), rest); err != nil {
				return false, err
			}
		}
		if err := orch.DeleteSession(ctx, id); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, "deleted")
		if orch.ActiveID() != "" {
			r.show()
		}
	case "reset":
		if err := orch.ResetSession(ctx, ""); err != nil {
			return false, err
		}
		r.show()

	case "log":
		if rest == "clear" {
			r.env.Audit.Clear()
			fmt.Fprintln(r.out, "debug log cleared")
			return false, nil
		}
		renderLog(r.out, r.env.Audit.Entries())
	case "key":
		return false, r.key(ctx, rest)

	default:
		return false, fmt.Errorf("unknown command %q (try `help`)", cmd)
	}
	return false, nil
}

func (r *repl) show() {
	v, err := r.env.Orch.View("")
	if err != nil {
		fmt.Fprintln(r.out, "No analysis selected. Start one with `new`.")
		return
	}
	renderView(r.out, v)
}

func (r *repl) key(ctx context.Context, arg string) error {
	switch arg {
	case "":
		key, err := r.env.Keys.Load(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "api key: %s\n", config.Mask(key))
		return nil
	case "clear":
		arg = ""
	}
	if err := saveKey(ctx, r.env, arg); err != nil {
		return err
	}
	if arg == "" {
		fmt.Fprintln(r.out, "api key cleared")
	} else {
		fmt.Fprintln(r.out, "api key saved")
	}
	return nil
}

// sessionRef accepts a 1-based history position or a session id.
func sessionRef(metas []session.Meta, arg string) (string, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(metas) {
			return "", fmt.Errorf("no session at position %d", n)
		}
		return metas[n-1].ID, nil
	}
	return arg, nil
}

// parseIndex converts a 1-based position to an index.
func parseIndex(arg string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("expected a position starting at 1, got %q", arg)
	}
	return n - 1, nil
}

// parseSolutionRef parses "<category> <n> [question]".
func parseSolutionRef(arg string, needQuestion bool) (contracts.Category, int, string, error) {
	fields := strings.SplitN(arg, " ", 3)
	if len(fields) < 2 || (needQuestion && len(fields) < 3) {
		usage := "usage: <category> <n>"
		if needQuestion {
			usage += " <question>"
		}
		return "", 0, "", errors.New(usage)
	}
	category, ok := contracts.ParseCategory(fields[0])
	if !ok {
		return "", 0, "", fmt.Errorf("unknown category %q", fields[0])
	}
	n, err := parseIndex(fields[1])
	if err != nil {
		return "", 0, "", err
	}
	question := ""
	if len(fields) == 3 {
		question = strings.TrimSpace(fields[2])
	}
	return category, n, question, nil
}

// describeError turns an error into the short text shown to the user.
// Generation failures name the step or the provider's complaint; detail is in
// the debug log.
func describeError(err error) string {
	var ve *workflow.ValidationError
	var ge *workflow.GenerationError
	var xe *workflow.ExtractionError
	switch {
	case errors.Is(err, workflow.ErrBusy):
		return "please wait for the current step to finish"
	case errors.Is(err, workflow.ErrTabLocked):
		return "that tab is locked until the earlier steps are done"
	case errors.As(err, &ge):
		switch ge.Op {
		case gateway.OpExtractSymptoms:
			return workflow.UserMessage(err, workflow.MsgExtractFailed)
		case gateway.OpGetAnalysis:
			return workflow.UserMessage(err, workflow.MsgAnalysisFailed)
		}
		return workflow.UserMessage(err, workflow.MsgQueryFailed)
	case errors.As(err, &xe):
		if errors.Is(err, document.ErrUnsupportedType) {
			return workflow.MsgNotPDF
		}
		return workflow.MsgPDFFailed
	case errors.As(err, &ve):
		return ve.Error()
	}
	return err.Error()
}
