// Package report renders a result table as
// {name=min/center/max, name=min/center/max}.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/example/stationstats/internal/fault"
	"github.com/example/stationstats/internal/station"
)

var ErrInvalidName = errors.New("station name is not valid UTF-8")

// Render writes the whole table on one line, stations in byte order. Names
// are checked before anything is written, so a bad name leaves w untouched.
func Render(w io.Writer, t station.Table) error {
	names := t.Names()
	for _, name := range names {
		if !utf8.ValidString(name) {
			return fault.Newf(fault.KindEncoding, "render", "%q: %w", name, ErrInvalidName)
		}
	}

	bw := bufio.NewWriter(w)
	bw.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			bw.WriteString(", ")
		}
		r := t[name]
		fmt.Fprintf(bw, "%s=%.1f/%.1f/%.1f", name, r.Min, r.Center, r.Max)
	}
	bw.WriteString("}\n")
	return bw.Flush()
}
