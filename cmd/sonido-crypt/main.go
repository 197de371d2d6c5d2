package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/RyanBlaney/sonido-crypt/cipher"
	"github.com/RyanBlaney/sonido-crypt/container"
	"github.com/RyanBlaney/sonido-crypt/logging"
	"github.com/RyanBlaney/sonido-crypt/pipeline"
)

const passwordEnv = "SONIDO_CRYPT_PASSWORD"

var errUsage = errors.New("usage")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one subcommand and returns the process exit code
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		usage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "analyze":
		err = analyze(args[1:], stdout, stderr)
	case "encrypt":
		err = encrypt(args[1:], stdout, stderr)
	case "decrypt":
		err = decrypt(args[1:], stdout, stderr)
	case "params":
		err = params(args[1:], stdout, stderr)
	case "-h", "-help", "--help", "help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, flag.ErrHelp):
		return 2
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  sonido-crypt analyze [flags] <input.wav>")
	fmt.Fprintln(w, "  sonido-crypt encrypt [flags] <input.wav> <output.sgc>")
	fmt.Fprintln(w, "  sonido-crypt decrypt [flags] <input.sgc> <output.wav>")
	fmt.Fprintln(w, "  sonido-crypt params  [flags] -rows R -cols C")
	fmt.Fprintf(w, "\nThe password is read from -password or %s.\n", passwordEnv)
}

// commonFlags are shared by every subcommand
type commonFlags struct {
	fs         *flag.FlagSet
	password   string
	configPath string
	logLevel   string
	quiet      bool
}

func newFlags(name string, stderr io.Writer) *commonFlags {
	c := &commonFlags{fs: flag.NewFlagSet(name, flag.ContinueOnError)}
	c.fs.SetOutput(stderr)
	c.fs.StringVar(&c.password, "password", "", "password (default $"+passwordEnv+")")
	c.fs.StringVar(&c.configPath, "config", "", "JSON pipeline config file")
	c.fs.StringVar(&c.logLevel, "log-level", "warn", "debug, info, warn or error")
	c.fs.BoolVar(&c.quiet, "quiet", false, "no progress output")
	return c
}

// parse parses args, expects nargs positional arguments and sets up logging
func (c *commonFlags) parse(args []string, nargs int, stderr io.Writer) error {
	if err := c.fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if c.fs.NArg() != nargs {
		fmt.Fprintf(stderr, "%s: expected %d argument(s), got %d\n", c.fs.Name(), nargs, c.fs.NArg())
		c.fs.Usage()
		return errUsage
	}

	level, err := logging.ParseLevel(c.logLevel)
	if err != nil {
		return err
	}
	logger := logging.NewDefaultLoggerWithWriters(stderr, stderr)
	logger.SetLevel(level)
	logging.SetGlobalLogger(logger)

	if c.password == "" {
		c.password = os.Getenv(passwordEnv)
	}
	return nil
}

func (c *commonFlags) config() (*pipeline.Config, error) {
	if c.configPath == "" {
		return pipeline.DefaultConfig(), nil
	}
	return pipeline.LoadConfig(c.configPath)
}

func (c *commonFlags) pipeline(cfg *pipeline.Config, stages []pipeline.Stage, stderr io.Writer) (*pipeline.Pipeline, *progress, error) {
	p, err := pipeline.New(cfg)
	if err != nil {
		return nil, nil, err
	}

	var bar *progress
	if !c.quiet {
		bar = newProgress(stderr, c.fs.Name(), stages)
		p.SetObserver(bar.Observe)
	}
	return p, bar, nil
}

func analyze(args []string, stdout, stderr io.Writer) error {
	flags := newFlags("analyze", stderr)
	outDir := flags.fs.String("out", "", "output directory (overrides config)")
	if err := flags.parse(args, 1, stderr); err != nil {
		return err
	}

	cfg, err := flags.config()
	if err != nil {
		return err
	}
	if *outDir != "" {
		cfg.OutputDir = *outDir
	}

	p, bar, err := flags.pipeline(cfg, pipeline.AnalyzeStages, stderr)
	if err != nil {
		return err
	}
	report, err := p.Analyze(flags.fs.Arg(0), flags.password)
	bar.Finish(err)
	if err != nil {
		return err
	}

	return printJSON(stdout, report)
}

func encrypt(args []string, stdout, stderr io.Writer) error {
	flags := newFlags("encrypt", stderr)
	precision := flags.fs.String("precision", "", "payload precision: float64, float32 or float16 (overrides config)")
	if err := flags.parse(args, 2, stderr); err != nil {
		return err
	}

	cfg, err := flags.config()
	if err != nil {
		return err
	}
	if *precision != "" {
		cfg.Precision = container.Precision(*precision)
	}

	p, bar, err := flags.pipeline(cfg, pipeline.EncryptStages, stderr)
	if err != nil {
		return err
	}
	report, err := p.EncryptFile(flags.fs.Arg(0), flags.fs.Arg(1), flags.password)
	bar.Finish(err)
	if err != nil {
		return err
	}

	return printJSON(stdout, report)
}

func decrypt(args []string, stdout, stderr io.Writer) error {
	flags := newFlags("decrypt", stderr)
	if err := flags.parse(args, 2, stderr); err != nil {
		return err
	}

	cfg, err := flags.config()
	if err != nil {
		return err
	}

	p, bar, err := flags.pipeline(cfg, pipeline.DecryptStages, stderr)
	if err != nil {
		return err
	}
	report, err := p.DecryptFile(flags.fs.Arg(0), flags.fs.Arg(1), flags.password)
	bar.Finish(err)
	if err != nil {
		return err
	}

	return printJSON(stdout, report)
}

func params(args []string, stdout, stderr io.Writer) error {
	flags := newFlags("params", stderr)
	rows := flags.fs.Int("rows", 0, "frequency bins")
	cols := flags.fs.Int("cols", 0, "time segments")
	if err := flags.parse(args, 0, stderr); err != nil {
		return err
	}

	cfg, err := flags.config()
	if err != nil {
		return err
	}

	p, err := cipher.DeriveParams(flags.password, cipher.Shape{Rows: *rows, Cols: *cols}, cfg.Cipher)
	if err != nil {
		return err
	}

	return printJSON(stdout, struct {
		Seed string `json:"seed"`
		*cipher.Params
	}{
		Seed:   p.Seed.String(),
		Params: p,
	})
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
