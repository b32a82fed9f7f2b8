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
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/x-stp/extref/internal/metrics"
	"github.com/x-stp/extref/internal/target"
)

// ErrNotConnected is returned by Send and ReceiveUntilClose before a successful Connect.
var ErrNotConnected = errors.New("connection not established")

// Conn is one request/response cycle over a freshly opened socket.
type Conn interface {
	// Connect opens the socket (and completes the TLS handshake for TLS targets).
	Connect(ctx context.Context) error
	// Send writes the whole request in one write.
	Send(req []byte) error
	// ReceiveUntilClose reads until the peer closes the stream and returns every byte read.
	ReceiveUntilClose(ctx context.Context) ([]byte, error)
	// Close releases the socket. It is safe to call more than once.
	Close() error
}

// NewConn returns the Conn variant matching the target scheme.
func NewConn(t target.Target, cfg *Config, logger zerolog.Logger) Conn {
	cfg = cfg.withDefaults()

	base := &plainConn{}
	var conn Conn = base
	if t.IsTLS() {
		tc := &tlsConn{}
		base = &tc.plainConn
		conn = tc
	}

	base.target = t
	base.cfg = cfg
	base.scheme = string(t.Scheme)
	base.log = logger.With().Str("component", "conn").Str("addr", t.Address()).Logger()
	if cfg.MaxBytesPerSecond > 0 {
		// Burst equals the chunk size so a full read is always admissible.
		base.limiter = rate.NewLimiter(rate.Limit(cfg.MaxBytesPerSecond), cfg.ChunkSize)
	}
	return conn
}

// stream carries the state and the read/write loop shared by both variants.
type stream struct {
	target  target.Target
	cfg     *Config
	scheme  string
	limiter *rate.Limiter
	log     zerolog.Logger

	conn      net.Conn
	closeOnce sync.Once
	closeErr  error
}

func (s *stream) Send(req []byte) error {
	if s.conn == nil {
		return ErrNotConnected
	}
	if _, err := s.conn.Write(req); err != nil {
		metrics.GetMetrics().RecordError(s.scheme, "write")
		return fmt.Errorf("failed to send request to %s: %w", s.target.Address(), err)
	}
	s.log.Debug().Int("bytes", len(req)).Msg("Request sent")
	return nil
}

func (s *stream) ReceiveUntilClose(ctx context.Context) ([]byte, error) {
	if s.conn == nil {
		return nil, ErrNotConnected
	}

	m := metrics.GetMetrics()
	var acc bytes.Buffer
	buf := make([]byte, s.cfg.ChunkSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			acc.Write(buf[:n])
			m.RecordRead(s.scheme, n)
			if werr := s.throttle(ctx, n); werr != nil {
				return acc.Bytes(), werr
			}
		}

		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF):
			s.log.Debug().Int("bytes", acc.Len()).Msg("Peer closed the stream")
			return acc.Bytes(), nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			// TLS peers that drop the socket mid-record; keep what arrived.
			s.log.Debug().Int("bytes", acc.Len()).Msg("Stream ended without a clean close")
			return acc.Bytes(), nil
		case ctx.Err() != nil:
			m.RecordError(s.scheme, "canceled")
			return acc.Bytes(), fmt.Errorf("read from %s interrupted: %w", s.target.Address(), ctx.Err())
		default:
			m.RecordError(s.scheme, "read")
			return acc.Bytes(), fmt.Errorf("failed to read response from %s: %w", s.target.Address(), err)
		}
	}
}

func (s *stream) throttle(ctx context.Context, n int) error {
	if s.limiter == nil {
		return nil
	}
	start := time.Now()
	if err := s.limiter.WaitN(ctx, n); err != nil {
		return fmt.Errorf("read from %s interrupted while throttled: %w", s.target.Address(), err)
	}
	metrics.GetMetrics().RecordRateLimitDelay(s.scheme, time.Since(start))
	return nil
}

func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		if s.conn != nil {
			s.closeErr = s.conn.Close()
		}
	})
	return s.closeErr
}

func (s *stream) dialTCP(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{
		Timeout: s.cfg.DialTimeout,
		Control: socketControl(s.cfg),
	}
	addr := s.target.Address()
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		metrics.GetMetrics().RecordError(s.scheme, "dial")
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	s.log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Connected")
	return conn, nil
}

// plainConn is a bare TCP connection.
type plainConn struct {
	stream
}

func (c *plainConn) Connect(ctx context.Context) error {
	conn, err := c.dialTCP(ctx)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

// tlsConn is a TCP connection wrapped in TLS, verified against the system trust
// store unless Config.RootCAs is set.
type tlsConn struct {
	plainConn
}

func (c *tlsConn) Connect(ctx context.Context) error {
	raw, err := c.dialTCP(ctx)
	if err != nil {
		return err
	}

	tc := tls.Client(raw, c.tlsConfig())
	hsCtx := ctx
	if c.cfg.TLSHandshakeTimeout > 0 {
		var cancel context.CancelFunc
		hsCtx, cancel = context.WithTimeout(ctx, c.cfg.TLSHandshakeTimeout)
		defer cancel()
	}

	done := metrics.MeasureDuration(metrics.GetMetrics().TLSHandshakeDuration, map[string]string{"host": c.target.Host})
	err = tc.HandshakeContext(hsCtx)
	done()
	if err != nil {
		raw.Close()
		metrics.GetMetrics().RecordError(c.scheme, "tls")
		return fmt.Errorf("tls handshake with %s failed: %w", c.target.Address(), err)
	}

	state := tc.ConnectionState()
	c.log.Debug().
		Str("version", tls.VersionName(state.Version)).
		Str("cipher", tls.CipherSuiteName(state.CipherSuite)).
		Msg("TLS handshake complete")
	c.conn = tc
	return nil
}

func (c *tlsConn) tlsConfig() *tls.Config {
	return &tls.Config{
		ServerName: c.target.Host,
		RootCAs:    c.cfg.RootCAs,
		MinVersion: tls.VersionTLS12,
		NextProtos: []string{"http/1.1"},
	}
}
