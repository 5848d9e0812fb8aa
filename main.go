// entry point

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/skx/dosfs/consolein"
	"github.com/skx/dosfs/consoleout"
	"github.com/skx/dosfs/dos"
	"github.com/skx/dosfs/drive"
	"github.com/skx/dosfs/shell"
	"github.com/skx/dosfs/static"
	"github.com/skx/dosfs/version"
)

// driveFlags holds the "-drive X=/path" arguments, which may be repeated.
type driveFlags []string

func (d *driveFlags) String() string {
	return strings.Join(*d, ",")
}

func (d *driveFlags) Set(value string) error {
	letter, path, ok := strings.Cut(value, "=")
	if !ok || len(letter) != 1 || path == "" {
		return fmt.Errorf("expected X=/path, got '%s'", value)
	}
	*d = append(*d, value)
	return nil
}

// config holds the parsed command-line.
type config struct {
	drives   driveFlags
	memDrive string
	files    int
	input    string
	output   string
	prn      string
	logLevel string
	command  string
}

// mount returns the options which mount the drives we've been asked for.
func (c *config) mount() ([]dos.Option, error) {
	var opts []dos.Option

	for _, value := range c.drives {
		letter, path, _ := strings.Cut(value, "=")
		d, err := drive.Create("local", path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, dos.WithDrive(letter[0], d))
	}

	for _, letter := range strings.ToUpper(c.memDrive) {
		d, err := drive.Create("memory", "")
		if err != nil {
			return nil, err
		}
		opts = append(opts, dos.WithDrive(byte(letter), d))
	}

	content, err := static.GetDrive("Z")
	if err != nil {
		return nil, err
	}
	z, err := drive.NewVirtual(content)
	if err != nil {
		return nil, err
	}
	opts = append(opts, dos.WithVirtualDrive(z))

	return opts, nil
}

// run is our real entry point, which returns the exit code.
func run(args []string, stdout io.Writer) int {

	flags := flag.NewFlagSet("dosfs", flag.ContinueOnError)
	flags.SetOutput(stdout)

	var c config
	var showVersion, listInput, listOutput bool

	flags.Var(&c.drives, "drive", "Mount a host directory, as X=/path.  May be repeated.")
	flags.StringVar(&c.memDrive, "memdrive", "", "The letters of drives to create in memory.")
	flags.IntVar(&c.files, "files", dos.DefaultFiles, "The number of entries in the system file table.")
	flags.StringVar(&c.input, "input", "term", "The name of the console input driver to use.")
	flags.StringVar(&c.output, "output", "ansi", "The name of the console output driver to use.")
	flags.StringVar(&c.prn, "prn", dos.DefaultPrinter, "The file which printer output is appended to.")
	flags.StringVar(&c.logLevel, "log-level", "", "The level to log at: debug, info, warn, or error.")
	flags.StringVar(&c.command, "c", "", "Run the given command, and exit.")
	flags.BoolVar(&showVersion, "version", false, "Show our version, and exit.")
	flags.BoolVar(&listInput, "list-input-drivers", false, "List the console input drivers, and exit.")
	flags.BoolVar(&listOutput, "list-output-drivers", false, "List the console output drivers, and exit.")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	if showVersion {
		fmt.Fprint(stdout, version.GetVersionBanner())
		return 0
	}

	if listInput {
		for _, name := range consolein.GetDrivers() {
			fmt.Fprintf(stdout, "%s\n", name)
		}
		return 0
	}

	out, err := consoleout.New(c.output)
	if err != nil {
		fmt.Fprintf(stdout, "Error creating output driver: %s\n", err)
		return 1
	}
	out.SetWriter(stdout)

	if listOutput {
		for _, name := range out.GetDrivers() {
			fmt.Fprintf(stdout, "%s\n", name)
		}
		return 0
	}

	// Setup our logging level - default to warnings or higher
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)

	// But show "everything" if $DEBUG is non.empty
	if os.Getenv("DEBUG") != "" {
		lvl.Set(slog.LevelDebug)
	}
	if c.logLevel != "" {
		if err = lvl.UnmarshalText([]byte(c.logLevel)); err != nil {
			fmt.Fprintf(stdout, "Invalid log level '%s': %s\n", c.logLevel, err)
			return 1
		}
	}

	//
	// Create our logging handler, using the level we've just setup
	//
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	}))

	in, err := consolein.New(c.input)
	if err != nil {
		fmt.Fprintf(stdout, "Error creating input driver: %s\n", err)
		return 1
	}

	opts, err := c.mount()
	if err != nil {
		fmt.Fprintf(stdout, "Error mounting drives: %s\n", err)
		return 1
	}
	opts = append(opts,
		dos.WithLogger(log),
		dos.WithFiles(c.files),
		dos.WithConsole(in, out),
		dos.WithPrinterPath(c.prn),
	)

	//
	// Create the kernel.
	//
	k, err := dos.New(opts...)
	if err != nil {
		fmt.Fprintf(stdout, "Error creating kernel: %s\n", err)
		return 1
	}

	sh := shell.New(k, log)

	// A single command doesn't need the keyboard.
	if c.command != "" {
		err = sh.RunCommand(c.command)
		if err != nil && !errors.Is(err, shell.ErrExit) {
			fmt.Fprintf(stdout, "Error running '%s': %s\n", c.command, err)
			return 1
		}
		return 0
	}

	if err = in.Setup(); err != nil {
		fmt.Fprintf(stdout, "Error setting up console input: %s\n", err)
		return 1
	}
	defer in.TearDown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Fprint(out, strings.ReplaceAll(version.GetVersionBanner(), "\n", "\r\n"))
	if err = sh.Run(ctx); err != nil {
		log.Error("shell failed", slog.String("error", err.Error()))
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}
