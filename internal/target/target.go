/*
Package target splits the command-line URL into the pieces the rest of extref needs:
the scheme that selects plain or TLS transport, the host used for dialing, SNI and
self-reference exclusion, and the path placed on the request line.
*/
package target

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
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Scheme is the transport selector taken from the URL prefix.
type Scheme string

const (
	SchemeHTTP  Scheme = "http"
	SchemeHTTPS Scheme = "https"
)

// Default ports per scheme.
const (
	DefaultHTTPPort  = 80
	DefaultHTTPSPort = 443
)

var (
	// ErrUnsupportedScheme is returned when the argument does not start with http:// or https://.
	ErrUnsupportedScheme = errors.New("must be a http/https URI input")
	// ErrMissingHost is returned when nothing follows the scheme separator.
	ErrMissingHost = errors.New("URI has no host")
	// ErrInvalidPort is returned for an authority whose port is not a number in 1-65535.
	ErrInvalidPort = errors.New("URI has an invalid port")
)

// Target is the parsed form of the single URL extref fetches.
// It is built once by Parse and never modified afterwards.
type Target struct {
	Scheme Scheme
	// Authority is the text between the scheme and the path exactly as given,
	// port included. It is sent as the Host header and is the name excluded
	// from the reference set.
	Authority string
	Host      string // bare hostname for dialing and SNI, no port or brackets
	Port      int
	Path      string // request-target, always starts with '/'
}

// DefaultPort returns the well-known port for the scheme.
func (s Scheme) DefaultPort() int {
	if s == SchemeHTTPS {
		return DefaultHTTPSPort
	}
	return DefaultHTTPPort
}

// Parse splits raw into a Target.
//
// The host ends at the first '/', '?' or '#' after the scheme. Everything from
// there on is the path, defaulting to "/". Fragments are dropped because they are
// never sent to the server.
func Parse(raw string) (Target, error) {
	var t Target
	var rest string
	switch {
	case strings.HasPrefix(raw, "https://"):
		t.Scheme = SchemeHTTPS
		rest = raw[len("https://"):]
	case strings.HasPrefix(raw, "http://"):
		t.Scheme = SchemeHTTP
		rest = raw[len("http://"):]
	default:
		return Target{}, fmt.Errorf("%w: %q", ErrUnsupportedScheme, raw)
	}

	authority := rest
	path := ""
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		authority = rest[:i]
		path = rest[i:]
	}
	if frag := strings.IndexByte(path, '#'); frag >= 0 {
		path = path[:frag]
	}
	switch {
	case path == "":
		path = "/"
	case path[0] == '?':
		path = "/" + path
	}
	t.Path = path
	t.Authority = authority

	host, port, err := splitAuthority(authority, t.Scheme)
	if err != nil {
		return Target{}, err
	}
	t.Host = host
	t.Port = port
	return t, nil
}

func splitAuthority(authority string, scheme Scheme) (string, int, error) {
	if authority == "" {
		return "", 0, ErrMissingHost
	}

	// A colon outside of an IPv6 literal means an explicit port.
	hasPort := strings.LastIndexByte(authority, ':') > strings.LastIndexByte(authority, ']')
	if !hasPort {
		host := strings.TrimSuffix(strings.TrimPrefix(authority, "["), "]")
		if host == "" {
			return "", 0, ErrMissingHost
		}
		return host, scheme.DefaultPort(), nil
	}

	host, portStr, err := net.SplitHostPort(authority)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrInvalidPort, err)
	}
	if host == "" {
		return "", 0, ErrMissingHost
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("%w: %q", ErrInvalidPort, portStr)
	}
	return host, port, nil
}

// Address is the host:port pair handed to the dialer.
func (t Target) Address() string {
	port := t.Port
	if port == 0 {
		port = t.Scheme.DefaultPort()
	}
	return net.JoinHostPort(t.Host, strconv.Itoa(port))
}

// IsTLS reports whether the target must be fetched over TLS.
func (t Target) IsTLS() bool {
	return t.Scheme == SchemeHTTPS
}

func (t Target) String() string {
	return string(t.Scheme) + "://" + t.Authority + t.Path
}
