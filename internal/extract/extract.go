/*
Package extract finds the domains a page links to. It is a pattern heuristic over the
raw body text, not an HTML parser: the body is cut into fragments at every '<' and each
fragment is searched for absolute http(s) URLs.
*/
package extract

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
	"regexp"
	"strings"
)

// wordClass is the set of "word" characters: Unicode letters, digits and underscore.
const wordClass = `\p{L}\p{N}_`

// urlPattern matches an absolute URL. Group 1 is the scheme, group 2 the host
// (dot separated labels, at least one dot), group 3 the optional
// path/query/fragment/port suffix, which may not end on '.', ',' or ':'.
var urlPattern = regexp.MustCompile(
	`(https?)://` +
		`([` + wordClass + `-]+(?:\.[` + wordClass + `-]+)+)` +
		`([` + wordClass + `.,@?^=%&:/~+#-]*[` + wordClass + `@?^=%&/~+#-])?`,
)

const hostGroup = 2

// References returns the set of hosts referenced by absolute URLs in body,
// minus host itself. The exclusion is an exact string comparison, so a host
// carrying a port never removes the bare name.
func References(body, host string) *RefSet {
	refs := NewRefSet()
	for _, fragment := range strings.Split(body, "<") {
		for _, m := range urlPattern.FindAllStringSubmatch(fragment, -1) {
			refs.Add(m[hostGroup])
		}
	}
	refs.Discard(host)
	return refs
}
