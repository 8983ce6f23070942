package codec

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// textEncoding converts between Go strings and the configured wire encoding
type textEncoding interface {
	encode(s string) []byte
	decode(b []byte) string
	name() string
}

// newTextEncoding resolves an encoding name as used in the configuration
func newTextEncoding(name string) (textEncoding, error) {
	switch strings.ToLower(name) {
	case "", "utf8", "utf-8":
		return utf8Encoding{}, nil
	case "ascii":
		return asciiEncoding{}, nil
	case "latin1", "binary":
		return latin1Encoding{}, nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
}

// --------------------------------------------------------------------------
// utf8
// --------------------------------------------------------------------------

type utf8Encoding struct{}

func (utf8Encoding) encode(s string) []byte { return []byte(s) }
func (utf8Encoding) decode(b []byte) string { return string(b) }
func (utf8Encoding) name() string           { return "utf8" }

// --------------------------------------------------------------------------
// ascii
// --------------------------------------------------------------------------

// asciiEncoding writes '?' for every rune outside of 7 bit ASCII and strips
// the high bit when reading
type asciiEncoding struct{}

func (asciiEncoding) encode(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r < utf8.RuneSelf {
			out = append(out, byte(r))
		} else {
			out = append(out, '?')
		}
	}
	return out
}

func (asciiEncoding) decode(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		out[i] = c & 0x7f
	}
	return string(out)
}

func (asciiEncoding) name() string { return "ascii" }

// --------------------------------------------------------------------------
// latin1
// --------------------------------------------------------------------------

type latin1Encoding struct{}

func (latin1Encoding) encode(s string) []byte {
	out, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil {
		// unmappable runes: fall back to a replacing encoder
		out, _ = charmap.ISO8859_1.NewEncoder().String(strings.Map(func(r rune) rune {
			if r > 0xff {
				return '?'
			}
			return r
		}, s))
	}
	return []byte(out)
}

func (latin1Encoding) decode(b []byte) string {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

func (latin1Encoding) name() string { return "latin1" }
