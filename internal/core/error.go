/*
Package core runs the extref pipeline: validate the URL, fetch the page over a raw
socket, split the response, extract external references and print the report.
It also classifies failures so the command can map them to exit codes.
*/
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
	"errors"
	"fmt"
)

// Kind classifies a failure of the pipeline.
type Kind int

const (
	// KindUnknown is reported for errors that did not pass through core.
	KindUnknown Kind = iota
	// KindUsage covers argument and URL validation failures.
	KindUsage
	// KindConnection covers DNS, connect, TLS, read and write failures.
	KindConnection
	// KindMalformed means the response could not be split into header and body.
	KindMalformed
	// KindIO covers local file and stdout failures.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindConnection:
		return "connection"
	case KindMalformed:
		return "malformed"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is an error tagged with a Kind.
type Error struct {
	kind    Kind
	message string
	err     error
}

// NewError creates a classified error without an underlying cause.
func NewError(kind Kind, msg string) error {
	return &Error{kind: kind, message: msg}
}

// WrapError tags err with kind. A nil err yields nil. If msg is empty the
// message of err is used as is.
func WrapError(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, message: msg, err: err}
}

func (e *Error) Error() string {
	switch {
	case e.err == nil:
		return e.message
	case e.message == "":
		return e.err.Error()
	default:
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}
}

func (e *Error) Unwrap() error {
	return e.err
}

// Kind returns the classification of e.
func (e *Error) Kind() Kind {
	return e.kind
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

// IsUsage reports whether err is a usage error.
func IsUsage(err error) bool {
	return KindOf(err) == KindUsage
}

// ExitCode maps err to the process exit status. nil maps to ExitOK.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch KindOf(err) {
	case KindUsage:
		return ExitUsage
	case KindConnection:
		return ExitConnection
	case KindMalformed:
		return ExitMalformed
	case KindIO:
		return ExitIO
	default:
		return ExitUsage
	}
}
