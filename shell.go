package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"
)

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive session against one open library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.shell()
		},
	}
}

// shell runs commands line by line. Every line gets a fresh command tree
// bound to the already open manager, so flags never leak between lines.
func (a *app) shell() error {
	lines := bufio.NewReader(a.in)
	a.in = lines
	out := a.out

	fmt.Fprintln(out, "Welcome to the Library Insight shell!")
	fmt.Fprintln(out, "Available commands:")
	fmt.Fprintln(out, "  Catalog: book add|list|show, search, view, read, user add|list")
	fmt.Fprintln(out, "  Circulation: checkout, return, cancel, mark-overdue, overdue, borrowings")
	fmt.Fprintln(out, "  Discovery: recommend, similar, trending, ask")
	fmt.Fprintln(out, "  Insight: dashboard, top, report, metrics")
	fmt.Fprintln(out, "  Account: review, notify, theme")
	fmt.Fprintln(out, "  System: help, exit")

	for {
		fmt.Fprint(out, "\n> ")
		line, err := lines.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		atEOF := err != nil

		args, splitErr := splitArgs(line)
		switch {
		case splitErr != nil:
			fmt.Fprintf(out, "Error: %v\n", splitErr)
		case len(args) == 0:
		case args[0] == "exit" || args[0] == "quit":
			fmt.Fprintln(out, "Goodbye!")
			return nil
		case args[0] == "shell":
			fmt.Fprintln(out, "Already in the shell.")
		default:
			a.runLine(args)
		}
		if atEOF {
			fmt.Fprintln(out)
			return nil
		}
	}
}

func (a *app) runLine(args []string) {
	defer func(output string) { a.output = output }(a.output)

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(a.out)
	root.SetErr(a.out)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
		a.log.Debug().Err(err).Strs("args", args).Int("exit_code", exitCode(err)).Msg("shell command failed")
	}
}

// splitArgs splits a command line the way a POSIX shell would, without
// expanding variables. Pipes, redirects and command separators are refused.
func splitArgs(line string) ([]string, error) {
	p := shellwords.NewParser()
	args, err := p.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", strings.TrimSpace(line), err)
	}
	if p.Position >= 0 {
		return nil, fmt.Errorf("unexpected %q in command line", line[p.Position])
	}
	return args, nil
}
