package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/arloliu/go-marionette/marionette"
	"github.com/spf13/cobra"
)

func newExecCmd(flags *rootFlags) *cobra.Command {
	var keepGoing bool

	cmd := &cobra.Command{
		Use:   "exec <command> [arg...] | exec 'name(arg,...)' ...",
		Short: "Run commands and print each result set as JSON",
		Example: `  marionette exec -p /dev/ttyACM0 version
  marionette exec -p /dev/ttyACM0 gpio.read h 3
  marionette exec -p /dev/ttyACM0 'gpio.set(a,1)' 'gpio.read(a,1)'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmds, err := parseCommands(args)
			if err != nil {
				return err
			}

			sess, _, err := flags.connect(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			return runCommands(sess, cmds, cmd.OutOrStdout(), keepGoing)
		},
	}

	cmd.Flags().BoolVarP(&keepGoing, "keep-going", "k", false, "continue after a command fails")

	return cmd
}

// parseCommands accepts either a command name followed by its arguments,
// or one or more complete "name(arg,...)" calls.
func parseCommands(args []string) ([]marionette.Command, error) {
	if !strings.Contains(args[0], "(") {
		cargs := make([]marionette.Arg, 0, len(args)-1)
		for _, a := range args[1:] {
			cargs = append(cargs, marionette.Text(a))
		}

		return []marionette.Command{marionette.NewCommand(args[0], cargs...)}, nil
	}

	cmds := make([]marionette.Command, 0, len(args))
	for _, a := range args {
		c, err := parseCall(a)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, c)
	}

	return cmds, nil
}

func parseCall(s string) (marionette.Command, error) {
	s = strings.TrimSpace(s)

	open := strings.IndexByte(s, '(')
	if open < 0 {
		return marionette.NewCommand(s), nil
	}
	if !strings.HasSuffix(s, ")") {
		return marionette.Command{}, fmt.Errorf("%w: unbalanced call %q", marionette.ErrInvalidArgument, s)
	}

	name, inner := s[:open], s[open+1:len(s)-1]
	if strings.TrimSpace(inner) == "" {
		return marionette.NewCommand(name), nil
	}

	parts := strings.Split(inner, marionette.ArraySeparator)
	args := make([]marionette.Arg, len(parts))
	for i, p := range parts {
		args[i] = marionette.Text(strings.TrimSpace(p))
	}

	return marionette.NewCommand(name, args...), nil
}

type execResult struct {
	Command string               `json:"command"`
	Result  marionette.ResultSet `json:"result,omitempty"`
	Error   string               `json:"error,omitempty"`
}

type executor interface {
	Exec(cmd marionette.Command) (marionette.ResultSet, error)
}

func runCommands(c executor, cmds []marionette.Command, w io.Writer, keepGoing bool) error {
	enc := json.NewEncoder(w)

	var firstErr error
	for _, cmd := range cmds {
		rs, err := c.Exec(cmd)

		out := execResult{Command: cmd.String(), Result: rs}
		if err != nil {
			out.Error = err.Error()
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", cmd.String(), err)
			}
		}

		if encErr := enc.Encode(out); encErr != nil {
			return encErr
		}

		if err != nil && !keepGoing {
			break
		}
	}

	return firstErr
}
