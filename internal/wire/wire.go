/*
Package wire holds the HTTP/1.1 text framing extref speaks: the fixed GET request it
writes and the header/body split it applies to whatever the server sends back.
Nothing here interprets status codes or headers.
*/
package wire

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
	"strings"
)

// Framing constants.
const (
	CRLF = "\r\n"
	// HeaderDelimiter separates the header block from the body.
	HeaderDelimiter = CRLF + CRLF
)

// Request header values. They are fixed so the request is reproducible byte for byte.
const (
	UserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/116.0.5845.111 Safari/537.36"
	Accept         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7"
	AcceptEncoding = "identity"
	AcceptLanguage = "en-US,en;q=0.9"
	Connection     = "close"
)

// ErrNoBody is returned by SplitResponse when the response has no blank line
// between headers and body.
var ErrNoBody = errors.New("no body found: response has no header/body delimiter")

// BuildRequest formats the GET request for path on host.
//
// Accept-Encoding: identity keeps the body plaintext and Connection: close makes
// the server end the stream after one response, so the reader can stop at EOF.
func BuildRequest(host, path string) []byte {
	var sb strings.Builder
	sb.Grow(512 + len(host) + len(path))
	sb.WriteString("GET " + path + " HTTP/1.1" + CRLF)
	writeHeader(&sb, "Host", host)
	writeHeader(&sb, "User-Agent", UserAgent)
	writeHeader(&sb, "Accept", Accept)
	writeHeader(&sb, "Accept-Encoding", AcceptEncoding)
	writeHeader(&sb, "Accept-Language", AcceptLanguage)
	writeHeader(&sb, "Connection", Connection)
	sb.WriteString(CRLF)
	return []byte(sb.String())
}

func writeHeader(sb *strings.Builder, name, value string) {
	sb.WriteString(name)
	sb.WriteString(": ")
	sb.WriteString(value)
	sb.WriteString(CRLF)
}

// Response is a raw response split at the first blank line.
type Response struct {
	Header string
	Body   string
}

// SplitResponse cuts text at the first HeaderDelimiter only. Blank lines further
// down belong to the body. Both halves are trimmed of surrounding whitespace.
func SplitResponse(text string) (Response, error) {
	header, body, found := strings.Cut(text, HeaderDelimiter)
	if !found {
		return Response{}, ErrNoBody
	}
	return Response{
		Header: strings.TrimSpace(header),
		Body:   strings.TrimSpace(body),
	}, nil
}

// StatusLine returns the first line of the header block.
func (r Response) StatusLine() string {
	line, _, _ := strings.Cut(r.Header, CRLF)
	return line
}

// DecodeLossy turns raw bytes into a string, dropping invalid UTF-8 sequences.
func DecodeLossy(raw []byte) string {
	return strings.ToValidUTF8(string(raw), "")
}
