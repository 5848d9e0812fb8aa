// Package shell contains a small command interpreter, in the style of
// COMMAND.COM, which drives the kernel.
//
// Commands are read from the console, and their output is written to
// it, so the shell works with any of the console drivers.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/skx/dosfs/consolein"
	"github.com/skx/dosfs/dos"
	"github.com/skx/dosfs/doserr"
)

// ErrExit is returned by RunCommand when the user runs EXIT.
var ErrExit = errors.New("EXIT")

// maxLine is the longest command line we read.
const maxLine = 127

// Handler is the signature of a built-in command.
type Handler func(s *Shell, args []string) error

// Command describes a built-in command.
type Command struct {
	// Desc holds a one-line description, shown by HELP.
	Desc string

	// Handler implements the command.
	Handler Handler
}

// Shell holds our state.
type Shell struct {
	kernel *dos.Kernel
	in     *consolein.ConsoleIn
	out    io.Writer

	// Commands holds the built-in commands, by name.
	Commands map[string]Command

	// Logger holds a logger which we use for debugging and diagnostics.
	Logger *slog.Logger
}

// New returns a shell which runs upon the given kernel, using its CON
// device for input and output.
func New(k *dos.Kernel, logger *slog.Logger) *Shell {
	s := &Shell{
		kernel: k,
		in:     k.Console().Input(),
		out:    k.Console().Output(),
		Logger: logger.With(slog.String("function", "shell")),
	}
	s.Commands = commands()
	return s
}

// SetOutput changes where the output of commands is written.
func (s *Shell) SetOutput(w io.Writer) {
	s.out = w
}

// printf writes to the console, converting our newlines to the CR LF
// pairs DOS uses.
func (s *Shell) printf(format string, args ...any) {
	str := fmt.Sprintf(format, args...)
	fmt.Fprint(s.out, strings.ReplaceAll(str, "\n", "\r\n"))
}

// Prompt returns the prompt, which shows the current drive and directory.
func (s *Shell) Prompt() string {
	drv := s.kernel.GetDefaultDrive()
	dir, _ := s.kernel.GetCurrentDir(0)
	return fmt.Sprintf("%c:\\%s>", 'A'+drv, dir)
}

// Run reads and executes commands until EXIT is given, or the input
// is exhausted.
func (s *Shell) Run(ctx context.Context) error {

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		s.printf("%s", s.Prompt())

		line, err := s.in.ReadLine(maxLine, s.out)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, consolein.ErrInterrupted) {
				s.printf("\n")
				return nil
			}
			return fmt.Errorf("failed to read a command: %w", err)
		}
		s.printf("\n")

		err = s.RunCommand(line)
		if errors.Is(err, ErrExit) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// RunCommand executes a single command line.
//
// Failures of the command itself are reported to the user, and only
// problems with the shell are returned.
func (s *Shell) RunCommand(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	s.Logger.Debug("RunCommand", slog.String("line", line))

	// Changing drive
	if len(line) == 2 && line[1] == ':' {
		return s.report(s.kernel.SetDrive((line[0] | 0x20) - 'a'))
	}

	name, rest, _ := strings.Cut(line, " ")
	name = strings.ToUpper(name)

	// "CD.." and "CD\" are commands too
	if i := strings.IndexAny(name, ".\\"); i > 0 {
		if _, ok := s.Commands[name[:i]]; ok {
			rest = line[i:]
			name = name[:i]
		}
	}

	cmd, ok := s.Commands[name]
	if !ok {
		s.printf("Bad command or file name\n")
		return nil
	}

	var args []string
	if name == "ECHO" {
		args = []string{strings.TrimPrefix(rest, " ")}
	} else {
		args = strings.Fields(rest)
	}
	return s.report(cmd.Handler(s, args))
}

// report shows the message of a DOS error.  Other errors are returned.
func (s *Shell) report(err error) error {
	if err == nil {
		return nil
	}
	var code doserr.Code
	if errors.As(err, &code) {
		s.printf("%s\n", code)
		return nil
	}
	return err
}

// Names returns the names of the built-in commands, sorted.
func (s *Shell) Names() []string {
	names := make([]string, 0, len(s.Commands))
	for name := range s.Commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
