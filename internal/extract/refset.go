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
	"sort"
	"strings"

	"github.com/zeebo/xxh3"
)

// RefSet is an unordered set of referenced hosts.
// Order only exists at read time through Sorted.
type RefSet struct {
	hosts map[string]struct{}
}

// NewRefSet returns an empty set.
func NewRefSet() *RefSet {
	return &RefSet{hosts: make(map[string]struct{})}
}

// Add inserts host. Adding an existing host is a no-op.
func (s *RefSet) Add(host string) {
	s.hosts[host] = struct{}{}
}

// Discard removes host if present.
func (s *RefSet) Discard(host string) {
	delete(s.hosts, host)
}

// Contains reports whether host is in the set.
func (s *RefSet) Contains(host string) bool {
	_, ok := s.hosts[host]
	return ok
}

// Len returns the number of distinct hosts.
func (s *RefSet) Len() int {
	return len(s.hosts)
}

// Sorted returns the hosts in ascending byte order.
func (s *RefSet) Sorted() []string {
	out := make([]string, 0, len(s.hosts))
	for h := range s.hosts {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// Fingerprint is an xxh3 digest over the sorted members, newline separated.
// Two runs that found the same hosts produce the same value.
func (s *RefSet) Fingerprint() uint64 {
	return xxh3.HashString(strings.Join(s.Sorted(), "\n"))
}
