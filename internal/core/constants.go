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

// Process exit statuses.
const (
	ExitOK         = 0
	ExitUsage      = 1
	ExitConnection = 2
	ExitMalformed  = 3
	ExitIO         = 4
)

const (
	// ExampleURL is printed after usage errors.
	ExampleURL = "https://www.rit.edu/"

	// UsageMissingURI is the usage message when the argument count is wrong.
	UsageMissingURI = "Requires one URI parameter"

	// bodyFileMode is the permission of files written by --save-body.
	bodyFileMode = 0o644
	// bodyDirMode is the permission of a directory created for --save-body.
	bodyDirMode = 0o755
)
