// Package record parses "<name>;<value>\n" records out of a chunk.
package record

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/example/stationstats/internal/fault"
)

var (
	ErrNoSeparator = errors.New("line has no ';' separator")
	ErrNoNewline   = errors.New("record has no terminating newline")
	ErrEmptyName   = errors.New("empty station name")
	ErrBadValue    = errors.New("value is not a one-decimal number")
)

// maxIntDigits keeps the tenths accumulator far away from overflow.
const maxIntDigits = 15

// ParseValue parses a fixed-point decimal of the form -?D+.D, going through
// integer tenths so the result is the float64 closest to the written value.
func ParseValue(buf []byte) (float64, bool) {
	t, ok := parseTenths(buf)
	return float64(t) / 10, ok
}

func parseTenths(buf []byte) (int64, bool) {
	i := 0
	neg := false
	if len(buf) > 0 && buf[0] == '-' {
		neg = true
		i++
	}
	// Need at least "D.D" after the sign, and the dot sits right before the last digit.
	if len(buf)-i < 3 || buf[len(buf)-2] != '.' || len(buf)-i-2 > maxIntDigits {
		return 0, false
	}

	var t int64
	for ; i < len(buf)-2; i++ {
		c := buf[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		t = t*10 + int64(c-'0')
	}
	c := buf[len(buf)-1]
	if c < '0' || c > '9' {
		return 0, false
	}
	t = t*10 + int64(c-'0')

	if neg {
		t = -t
	}
	return t, true
}

// Parser walks a chunk left to right, one record per Next call. Name aliases
// the chunk and is only valid until the next call to Next.
type Parser struct {
	buf   []byte
	off   int
	name  []byte
	value float64
	err   error
}

func NewParser(chunk []byte) *Parser {
	return &Parser{buf: chunk}
}

// Reset points p at a new chunk, letting a worker reuse one Parser.
func (p *Parser) Reset(chunk []byte) {
	*p = Parser{buf: chunk}
}

// Next reports whether another record was parsed. It returns false once the
// chunk is exhausted or on the first malformed record, see Err.
func (p *Parser) Next() bool {
	if p.err != nil {
		return false
	}
	rest := p.buf[p.off:]
	sep := bytes.IndexByte(rest, ';')
	if sep < 0 {
		if len(rest) > 0 {
			p.err = p.fail(ErrNoSeparator)
		}
		return false
	}
	name := rest[:sep]
	if bytes.IndexByte(name, '\n') >= 0 {
		p.err = p.fail(ErrNoSeparator)
		return false
	}
	if len(name) == 0 {
		p.err = p.fail(ErrEmptyName)
		return false
	}

	nl := bytes.IndexByte(rest[sep+1:], '\n')
	if nl < 0 {
		p.err = p.fail(ErrNoNewline)
		return false
	}
	raw := rest[sep+1 : sep+1+nl]
	v, ok := ParseValue(raw)
	if !ok {
		p.err = p.fail(fmt.Errorf("%w: %q", ErrBadValue, raw))
		return false
	}

	p.name = name
	p.value = v
	p.off += sep + 1 + nl + 1
	return true
}

func (p *Parser) fail(err error) error {
	return fault.Newf(fault.KindParse, "parse", "at byte %d: %w", p.off, err)
}

func (p *Parser) Name() []byte { return p.name }

func (p *Parser) Value() float64 { return p.value }

func (p *Parser) Err() error { return p.err }
