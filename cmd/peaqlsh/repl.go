// peaqlsh is an interactive shell over an in-memory peaql.Context, grounded
// on the teacher's own REPL for line editing and result rendering
// (chirst-cdb/repl/repl.go), adapted to peaql's semicolon-terminated
// statement batches (parser.Parse already parses a whole batch, so peaqlsh
// only needs to decide when a batch is complete, not how to split it).
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/peaql/peaql"
	"github.com/peaql/peaql/output"
	"golang.org/x/term"
)

const (
	prompt          = "peaql> "
	promptContinued = "  ...> "
)

type repl struct {
	ctx      *peaql.Context
	terminal *term.Terminal
}

func newRepl(ctx *peaql.Context) *repl {
	r := &repl{
		ctx:      ctx,
		terminal: term.NewTerminal(os.Stdin, prompt),
	}
	r.loadHistory()
	return r
}

func (r *repl) Run() {
	r.writeLn("Welcome to peaqlsh. Type .exit to exit.")

	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		r.exitGracefully()
	}()

	previousInput := ""
	for {
		line := r.readLine(previousInput)
		input := previousInput + line
		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			previousInput = ""
			continue
		}
		if trimmed[0] == '.' {
			if trimmed == ".exit" {
				r.exitGracefully()
			}
			r.writeLn("Command not supported")
			previousInput = ""
			continue
		}
		if !strings.HasSuffix(trimmed, ";") {
			previousInput = input + "\n"
			continue
		}
		previousInput = ""
		r.runBatch(trimmed)
	}
}

func (r *repl) runBatch(text string) {
	start := time.Now()
	stmts, err := r.ctx.Compile(text, peaql.Params{})
	if err != nil {
		r.writeLn("Err: " + err.Error())
		return
	}
	result, err := r.ctx.ExecutePlan(stmts)
	if err != nil {
		r.writeLn("Err: " + err.Error())
		return
	}
	if result.HasAffectedRows {
		fmt.Fprintf(r.terminal, "%d row(s) affected\n", result.AffectedRows)
	} else if len(result.Columns) > 0 {
		r.writeLn(output.FormatTable(result))
	} else {
		r.writeLn("OK")
	}
	r.writeLn("Time: " + time.Since(start).String())
}

func (r *repl) readLine(previousInput string) string {
	oldState, err := term.MakeRaw(int(os.Stdin.Fd()))
	if err != nil {
		panic(err)
	}
	defer term.Restore(int(os.Stdin.Fd()), oldState)
	if previousInput == "" {
		r.terminal.SetPrompt(prompt)
	} else {
		r.terminal.SetPrompt(promptContinued)
	}
	line, err := r.terminal.ReadLine()
	if err != nil {
		if err == io.EOF {
			term.Restore(int(os.Stdin.Fd()), oldState)
			r.exitGracefully()
		}
		panic("err reading line: " + err.Error())
	}
	return line
}

func (r *repl) writeLn(text string) {
	r.terminal.Write([]byte(text + "\n"))
}

func (r *repl) exitGracefully() {
	r.saveHistory()
	os.Exit(0)
}

func (r *repl) loadHistory() {
	p, err := r.historyPath()
	if err != nil {
		return
	}
	contents, err := os.ReadFile(p)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.writeLn("failed to load history: " + err.Error())
		}
		return
	}
	lines := strings.Split(string(contents), "\n")
	slices.Reverse(lines)
	for _, line := range lines {
		if line == "" {
			continue
		}
		r.terminal.History.Add(line)
	}
}

func (r *repl) saveHistory() {
	var history []byte
	for i := range r.terminal.History.Len() {
		history = append(history, []byte(r.terminal.History.At(i)+"\n")...)
	}
	p, err := r.historyPath()
	if err != nil {
		return
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return
	}
	defer f.Close()
	f.Write(history)
}

func (r *repl) historyPath() (string, error) {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return dir + "/.peaqlsh_history", nil
}
