package client

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
	"time"

	"github.com/rs/zerolog"

	"github.com/x-stp/extref/internal/metrics"
	"github.com/x-stp/extref/internal/target"
)

// ClosingNotice is printed to the notice writer right before the socket is closed.
const ClosingNotice = "SOCKET CLOSING..."

// Fetcher runs one request/response cycle per Fetch call.
type Fetcher struct {
	cfg    *Config
	notice io.Writer
	log    zerolog.Logger
}

// NewFetcher creates a Fetcher. notice receives ClosingNotice; pass io.Discard to
// suppress it. A nil cfg means DefaultConfig.
func NewFetcher(cfg *Config, notice io.Writer, logger zerolog.Logger) *Fetcher {
	if notice == nil {
		notice = io.Discard
	}
	return &Fetcher{
		cfg:    cfg.withDefaults(),
		notice: notice,
		log:    logger.With().Str("component", "fetcher").Logger(),
	}
}

// Fetch connects to t, sends req and returns every byte the server sent before
// closing the connection. Once connected, the socket is closed on every return
// path. Cancelling ctx closes the socket to unblock a pending read.
func (f *Fetcher) Fetch(ctx context.Context, t target.Target, req []byte) (raw []byte, err error) {
	start := time.Now()
	defer func() {
		metrics.GetMetrics().RecordRequest(string(t.Scheme), time.Since(start), err)
	}()

	conn := NewConn(t, f.cfg, f.log)
	if err := conn.Connect(ctx); err != nil {
		return nil, err
	}

	stop := context.AfterFunc(ctx, func() {
		f.log.Debug().Err(ctx.Err()).Msg("Context done, closing socket")
		_ = conn.Close()
	})
	defer func() {
		stop()
		fmt.Fprintln(f.notice, ClosingNotice)
		if cerr := conn.Close(); cerr != nil {
			f.log.Debug().Err(cerr).Msg("Socket close reported an error")
		}
	}()

	if err := conn.Send(req); err != nil {
		return nil, err
	}

	raw, err = conn.ReceiveUntilClose(ctx)
	if err != nil {
		return raw, err
	}
	f.log.Info().
		Str("target", t.String()).
		Int("bytes", len(raw)).
		Dur("elapsed", time.Since(start)).
		Msg("Response received")
	return raw, nil
}
