// Package colname derives stored column and key names.
package colname

import (
	"fmt"
	"unicode/utf8"
)

// IndexPrefix is prepended to every special index column.
const IndexPrefix = "_idx"

// Indexed returns the column holding the named index of column.
// With the default prefix, Indexed("iexact", "title") is "_idx_iexact_title".
func Indexed(index, column string) string {
	return fmt.Sprintf("%s_%s_%s", IndexPrefix, index, column)
}

// Truncate shortens name to at most max characters.
// It reports whether name was shortened.
func Truncate(name string, max int) (string, bool) {
	if max < 0 {
		max = 0
	}
	if utf8.RuneCountInString(name) <= max {
		return name, false
	}
	i, n := 0, 0
	for i < len(name) && n < max {
		_, size := utf8.DecodeRuneInString(name[i:])
		i += size
		n++
	}
	return name[:i], true
}
