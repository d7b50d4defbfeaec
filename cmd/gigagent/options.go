package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/jessevdk/go-flags"

	"gig-recommender/internal/common/config"
	apperrors "gig-recommender/internal/common/errors"
	"gig-recommender/internal/common/logger"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

// Options is the root command. Struct tags are read by go-flags.
type Options struct {
	Config string `short:"f" long:"config" description:"config YAML path (default: configs/config.yaml lookup)"`

	Ask     AskCmd     `command:"ask" description:"Ask for a recommendation; the query is read from arguments or stdin"`
	Tools   ToolsCmd   `command:"tools" description:"Start the configured tool servers and print the tool catalogue"`
	Version VersionCmd `command:"version" description:"Print the version"`

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newOptions(stdin io.Reader, stdout, stderr io.Writer) *Options {
	o := &Options{stdin: stdin, stdout: stdout, stderr: stderr}
	o.Ask.root = o
	o.Tools.root = o
	o.Version.root = o
	return o
}

func (o *Options) loadConfig() (*config.Config, error) {
	if o.Config != "" {
		return config.LoadFromFile(o.Config)
	}
	return config.Load()
}

func (o *Options) newLogger(cfg *config.Config) logger.Logger {
	return logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts := newOptions(stdin, stdout, stderr)
	parser := flags.NewParser(opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "gigagent"

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(stdout, flagsErr.Message)
			return 0
		}
		reportError(stderr, err)
		return 1
	}
	return 0
}

func reportError(w io.Writer, err error) {
	if stdErr, ok := apperrors.AsStandardError(err); ok {
		fmt.Fprintf(w, "error: %s: %s\n", stdErr.Code, stdErr.Message)
		if stdErr.Details != "" {
			fmt.Fprintf(w, "  %s\n", stdErr.Details)
		}
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}
