package hashcrack

import (
	"math"

	"github.com/pkg/errors"
)

const (
	charsetLower   = "abcdefghijklmnopqrstuvwxyz"
	charsetUpper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	charsetDigits  = "0123456789"
	charsetSpecial = " !\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
	charsetHexLow  = "0123456789abcdef"
	charsetHexUp   = "0123456789ABCDEF"
)

var ErrInvalidMask = errors.New("invalid mask")

// Mask is a parsed hashcat-style mask: one charset per position.
type Mask struct {
	pattern   string
	positions [][]byte
}

func ParseMask(pattern string) (*Mask, error) {
	if pattern == "" {
		return nil, errors.Wrap(ErrInvalidMask, "empty mask")
	}
	var positions [][]byte
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '?' {
			positions = append(positions, []byte{c})
			continue
		}
		if i+1 >= len(pattern) {
			return nil, errors.Wrapf(ErrInvalidMask, "%q: dangling '?'", pattern)
		}
		i++
		charset, err := builtinCharset(pattern[i])
		if err != nil {
			return nil, errors.Wrapf(err, "%q", pattern)
		}
		positions = append(positions, charset)
	}
	return &Mask{pattern: pattern, positions: positions}, nil
}

func builtinCharset(c byte) ([]byte, error) {
	switch c {
	case 'l':
		return []byte(charsetLower), nil
	case 'u':
		return []byte(charsetUpper), nil
	case 'd':
		return []byte(charsetDigits), nil
	case 's':
		return []byte(charsetSpecial), nil
	case 'a':
		return []byte(charsetLower + charsetUpper + charsetDigits + charsetSpecial), nil
	case 'h':
		return []byte(charsetHexLow), nil
	case 'H':
		return []byte(charsetHexUp), nil
	case 'b':
		all := make([]byte, 256)
		for i := range all {
			all[i] = byte(i)
		}
		return all, nil
	case '?':
		return []byte{'?'}, nil
	default:
		return nil, errors.Wrapf(ErrInvalidMask, "unknown charset ?%c", c)
	}
}

func (m *Mask) String() string {
	return m.pattern
}

func (m *Mask) Len() int {
	return len(m.positions)
}

// Keyspace is the number of candidates the mask produces. ok is false when it
// does not fit in a uint64.
func (m *Mask) Keyspace() (n uint64, ok bool) {
	n = 1
	for _, p := range m.positions {
		size := uint64(len(p))
		if n > math.MaxUint64/size {
			return 0, false
		}
		n *= size
	}
	return n, true
}

// At returns the i-th candidate, the last position varying fastest.
func (m *Mask) At(i uint64) string {
	buf := make([]byte, len(m.positions))
	for p := len(m.positions) - 1; p >= 0; p-- {
		charset := m.positions[p]
		size := uint64(len(charset))
		buf[p] = charset[i%size]
		i /= size
	}
	return string(buf)
}
