/*
Package main is the entry point for the extref command-line application.

extref fetches a single web page over a raw HTTP/1.1 or TLS socket and prints the
sorted set of external domains referenced by absolute http/https URLs in the body:

	extref https://www.rit.edu/

The process exit status tells why a run failed: 1 for usage errors, 2 for
connection failures, 3 for a response without a header/body delimiter and 4 for
local I/O errors. SIGINT and SIGTERM cancel the fetch and close the socket.
*/
package main

/*
extref — fetch one web page and list the external domains it references
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/x-stp/extref/internal/client"
	"github.com/x-stp/extref/internal/core"
	"github.com/x-stp/extref/internal/logging"
	"github.com/x-stp/extref/internal/metrics"
)

// flags holds the command line settings of one invocation.
type flags struct {
	timeout     time.Duration
	dialTimeout time.Duration
	tlsTimeout  time.Duration
	chunkSize   int
	limitRate   int
	rcvbuf      int
	caFile      string
	saveBody    string
	metrics     bool
	logLevel    string
	logJSON     bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:   "extref <URL>",
		Short: "extref - list the external domains a web page references",
		Long: `extref fetches one page with a hand-written HTTP/1.1 GET over a plain or TLS
socket and prints every unique domain referenced by an absolute http/https URL
in the body, excluding the page's own host.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return core.NewError(core.KindUsage, core.UsageMissingURI)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd.Context(), args[0], f, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return core.WrapError(core.KindUsage, "", err)
	})

	fs := cmd.Flags()
	fs.DurationVar(&f.timeout, "timeout", 0, "Overall limit for the fetch (0 for none)")
	fs.DurationVar(&f.dialTimeout, "dial-timeout", client.DefaultDialTimeout, "Limit for establishing the TCP connection")
	fs.DurationVar(&f.tlsTimeout, "tls-timeout", 0, "Limit for the TLS handshake (0 for none)")
	fs.IntVar(&f.chunkSize, "chunk-size", client.DefaultChunkSize, "Socket read size in bytes")
	fs.IntVar(&f.limitRate, "limit-rate", 0, "Maximum read rate in bytes/s (0 for unlimited)")
	fs.IntVar(&f.rcvbuf, "rcvbuf", 0, "Socket receive buffer size in bytes (0 for OS default, Linux only)")
	fs.StringVar(&f.caFile, "ca-file", "", "PEM bundle to trust instead of the system roots")
	fs.StringVar(&f.saveBody, "save-body", "", "Directory to save the response body into")
	fs.BoolVar(&f.metrics, "metrics", false, "Print Prometheus metrics to stderr after the report")
	fs.StringVar(&f.logLevel, "log-level", logging.DefaultLevel, "Log level (trace, debug, info, warn, error)")
	fs.BoolVar(&f.logJSON, "log-json", false, "Write logs as JSON lines")

	return cmd
}

func runFetch(ctx context.Context, rawURL string, f flags, stdout, stderr io.Writer) error {
	logger, err := logging.New(stderr, logging.Options{Level: f.logLevel, JSON: f.logJSON})
	if err != nil {
		return core.WrapError(core.KindUsage, "", err)
	}

	cfg := client.DefaultConfig()
	cfg.DialTimeout = f.dialTimeout
	cfg.TLSHandshakeTimeout = f.tlsTimeout
	cfg.ChunkSize = f.chunkSize
	cfg.MaxBytesPerSecond = f.limitRate
	cfg.ReceiveBufferSize = f.rcvbuf
	if f.caFile != "" {
		pool, err := client.LoadRootCAs(f.caFile)
		if err != nil {
			return core.WrapError(core.KindIO, "", err)
		}
		cfg.RootCAs = pool
	}

	if f.metrics {
		metrics.EnableMetrics()
		defer func() {
			if werr := metrics.WriteText(stderr); werr != nil {
				logger.Warn().Err(werr).Msg("Failed to write metrics")
			}
		}()
	}

	res, err := core.Run(ctx, core.Options{
		URL:         rawURL,
		Timeout:     f.timeout,
		Client:      cfg,
		SaveBodyDir: f.saveBody,
	}, stdout, logger)
	if err != nil {
		return err
	}
	logger.Info().
		Str("target", res.Target.String()).
		Str("status", res.StatusLine).
		Int("references", res.Refs.Len()).
		Str("fingerprint", res.Fingerprint).
		Msg("Done")
	return nil
}

// execute runs the command with args and returns the process exit status.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return core.ExitOK
	}
	if core.IsUsage(err) {
		fmt.Fprintln(stderr, err)
		fmt.Fprintln(stderr, "EX: extref "+core.ExampleURL)
	} else {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return core.ExitCode(err)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
