// Package report prints the reference set in the fixed text layout extref has always used.
package report

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
	"bufio"
	"fmt"
	"io"

	"github.com/x-stp/extref/internal/extract"
)

const (
	Banner    = "UNIQUE EXTERNAL REFERENCE DOMAINS:"
	Rule      = "=========================================="
	NoneFound = "NONE FOUND"
)

// Write prints refs to w: a blank line, the banner, the sorted hosts (or
// NONE FOUND), a blank line and the total count.
func Write(w io.Writer, refs *extract.RefSet) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw)
	fmt.Fprintln(bw, Banner)
	fmt.Fprintln(bw, Rule)
	if refs.Len() == 0 {
		fmt.Fprintln(bw, NoneFound)
	}
	for _, host := range refs.Sorted() {
		fmt.Fprintln(bw, host)
	}
	fmt.Fprintln(bw)
	fmt.Fprintf(bw, "TOTAL OF %d UNIQUE EXTERNAL REFERENCES\n", refs.Len())

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
