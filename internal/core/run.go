package core

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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/x-stp/extref/internal/client"
	"github.com/x-stp/extref/internal/extract"
	"github.com/x-stp/extref/internal/metrics"
	"github.com/x-stp/extref/internal/report"
	"github.com/x-stp/extref/internal/target"
	"github.com/x-stp/extref/internal/util"
	"github.com/x-stp/extref/internal/wire"
)

// Options configures one run.
type Options struct {
	// URL is the single page to fetch.
	URL string
	// Timeout bounds the whole fetch. Zero means no limit.
	Timeout time.Duration
	// Client holds transport settings; nil means client.DefaultConfig.
	Client *client.Config
	// SaveBodyDir, when set, receives a copy of the decoded response body.
	SaveBodyDir string
}

// Result is what a successful run found.
type Result struct {
	Target     target.Target
	StatusLine string
	Refs       *extract.RefSet
	// Fingerprint is the hex xxh3 hash of the sorted reference set.
	Fingerprint string
}

// Run fetches opts.URL and writes the reference report to out. The socket
// closing notice is written to out as well.
func Run(ctx context.Context, opts Options, out io.Writer, logger zerolog.Logger) (*Result, error) {
	log := logger.With().Str("component", "core").Logger()

	t, err := target.Parse(opts.URL)
	if err != nil {
		return nil, WrapError(KindUsage, "", err)
	}
	log.Debug().Str("target", t.String()).Msg("Target parsed")

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	req := wire.BuildRequest(t.Authority, t.Path)
	raw, err := client.NewFetcher(opts.Client, out, logger).Fetch(ctx, t, req)
	if err != nil {
		return nil, WrapError(KindConnection, "", err)
	}

	resp, err := wire.SplitResponse(wire.DecodeLossy(raw))
	if err != nil {
		return nil, WrapError(KindMalformed, "", err)
	}
	log.Debug().Str("status", resp.StatusLine()).Int("body_bytes", len(resp.Body)).Msg("Response split")

	if opts.SaveBodyDir != "" {
		path, err := saveBody(opts.SaveBodyDir, t, resp.Body)
		if err != nil {
			return nil, WrapError(KindIO, "", err)
		}
		log.Info().Str("path", path).Msg("Body saved")
	}

	refs := extract.References(resp.Body, t.Authority)
	fingerprint := fmt.Sprintf("%016x", refs.Fingerprint())
	metrics.GetMetrics().UpdateReferences(t.Authority, len(resp.Body), refs.Len())
	log.Debug().
		Int("references", refs.Len()).
		Str("fingerprint", fingerprint).
		Msg("References extracted")

	if err := report.Write(out, refs); err != nil {
		return nil, WrapError(KindIO, "", err)
	}

	return &Result{Target: t, StatusLine: resp.StatusLine(), Refs: refs, Fingerprint: fingerprint}, nil
}

// saveBody writes body under dir through a temp file that is renamed into
// place once fully written.
func saveBody(dir string, t target.Target, body string) (string, error) {
	if err := os.MkdirAll(dir, bodyDirMode); err != nil {
		return "", fmt.Errorf("failed to create body directory '%s': %w", dir, err)
	}

	finalPath := filepath.Join(dir, util.BodyFilename(t.Authority, t.Path))
	tmpPath := finalPath + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(body), bodyFileMode); err != nil {
		return "", fmt.Errorf("failed to write body to '%s': %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		removeErr := os.Remove(tmpPath)
		return "", errors.Join(fmt.Errorf("failed to rename '%s' to '%s': %w", tmpPath, finalPath, err), removeErr)
	}
	return finalPath, nil
}
