package util

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

import "strings"

// maxFilenameLength keeps generated names well under common filesystem limits.
const maxFilenameLength = 100

// SanitizeFilename creates a filesystem-safe filename from a URL or other string.
// Replaces common problematic characters with underscores and limits length.
func SanitizeFilename(input string) string {
	replaced := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, input)
	if len(replaced) > maxFilenameLength {
		return strings.ToValidUTF8(replaced[:maxFilenameLength], "")
	}
	return replaced
}

// BodyFilename names the dump of a page body fetched from authority and path,
// e.g. "www.rit.edu_index.html.body".
func BodyFilename(authority, path string) string {
	name := SanitizeFilename(authority + strings.TrimRight(path, "/"))
	return name + ".body"
}
