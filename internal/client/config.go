/*
Package client performs the single raw-socket request/response cycle extref needs.

A Conn is connected, sent one request, drained until the peer closes, and closed.
There are two variants, plain TCP and TLS over TCP, picked once from the target's
scheme by NewConn. Fetcher wraps that cycle and guarantees the socket is closed on
every path once a connection exists.
*/
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
	"crypto/x509"
	"fmt"
	"os"
	"time"
)

const (
	// DefaultChunkSize is the size of each socket read.
	DefaultChunkSize = 8192
	// DefaultDialTimeout bounds connection establishment only. The TLS handshake
	// and reads are unbounded unless configured or the caller's context carries
	// a deadline.
	DefaultDialTimeout = 30 * time.Second
)

// Config holds transport settings. A zero-value Config behaves like DefaultConfig.
type Config struct {
	// DialTimeout is the maximum duration for establishing the TCP connection.
	DialTimeout time.Duration
	// TLSHandshakeTimeout is the maximum duration of the TLS handshake. Zero means no limit.
	TLSHandshakeTimeout time.Duration
	// ChunkSize is the buffer size used for each read from the socket.
	ChunkSize int
	// MaxBytesPerSecond throttles the read loop. Zero means unlimited.
	MaxBytesPerSecond int
	// ReceiveBufferSize sets SO_RCVBUF on the socket where supported. Zero keeps the OS default.
	ReceiveBufferSize int
	// RootCAs overrides the system trust store for TLS verification when non-nil.
	RootCAs *x509.CertPool
}

// DefaultConfig returns a new Config populated with the default settings.
func DefaultConfig() *Config {
	return &Config{
		DialTimeout: DefaultDialTimeout,
		ChunkSize:   DefaultChunkSize,
	}
}

// withDefaults returns a copy of c with zero fields replaced by defaults.
// A nil receiver yields DefaultConfig.
func (c *Config) withDefaults() *Config {
	if c == nil {
		return DefaultConfig()
	}

	out := *c
	if out.DialTimeout <= 0 {
		out.DialTimeout = DefaultDialTimeout
	}
	if out.TLSHandshakeTimeout < 0 {
		out.TLSHandshakeTimeout = 0
	}
	if out.ChunkSize <= 0 {
		out.ChunkSize = DefaultChunkSize
	}
	if out.MaxBytesPerSecond < 0 {
		out.MaxBytesPerSecond = 0
	}
	if out.ReceiveBufferSize < 0 {
		out.ReceiveBufferSize = 0
	}
	return &out
}

// LoadRootCAs reads a PEM bundle into a certificate pool.
func LoadRootCAs(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file '%s': %w", path, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no PEM certificates found in CA file '%s'", path)
	}
	return pool, nil
}
