package digest

import (
	"strings"

	"github.com/pkg/errors"
)

type Scheme string

const (
	SchemeMD5     Scheme = "md5"
	SchemeNTLM    Scheme = "ntlm"
	SchemeSHA1    Scheme = "sha1"
	SchemeSHA224  Scheme = "sha224"
	SchemeSHA256  Scheme = "sha256"
	SchemeSHA384  Scheme = "sha384"
	SchemeSHA512  Scheme = "sha512"
	SchemeUnknown Scheme = "unknown"
)

// concreteSchemes is the canonical order used when a phase targets every
// remaining scheme.
var concreteSchemes = []Scheme{
	SchemeMD5,
	SchemeNTLM,
	SchemeSHA1,
	SchemeSHA224,
	SchemeSHA256,
	SchemeSHA384,
	SchemeSHA512,
}

var hexLengths = map[Scheme]int{
	SchemeMD5:     32,
	SchemeNTLM:    32,
	SchemeUnknown: 32,
	SchemeSHA1:    40,
	SchemeSHA224:  56,
	SchemeSHA256:  64,
	SchemeSHA384:  96,
	SchemeSHA512:  128,
}

var ErrUnknownScheme = errors.New("unknown digest scheme")

func ParseScheme(name string) (Scheme, error) {
	s := Scheme(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := hexLengths[s]; !ok {
		return "", errors.Wrapf(ErrUnknownScheme, "%q", name)
	}
	return s, nil
}

func ConcreteSchemes() []Scheme {
	out := make([]Scheme, len(concreteSchemes))
	copy(out, concreteSchemes)
	return out
}

func (s Scheme) String() string {
	return string(s)
}

func (s Scheme) HexLength() int {
	return hexLengths[s]
}

func (s Scheme) IsConcrete() bool {
	return s != SchemeUnknown && s.HexLength() > 0
}

// Candidates lists the schemes an engine may be asked to try for a digest of
// this scheme. Only the ambiguous 32-hex class has more than one.
func (s Scheme) Candidates() []Scheme {
	if s == SchemeUnknown {
		return []Scheme{SchemeMD5, SchemeNTLM}
	}
	return []Scheme{s}
}

// WellFormed reports whether value is lower-case hex of a known digest length.
func WellFormed(value string) bool {
	_, ok := classify(value)
	return ok && isHex(value)
}

// classify infers the scheme from the hex length. 32 characters is ambiguous
// between MD5 and NTLM and yields SchemeUnknown.
func classify(value string) (Scheme, bool) {
	switch len(value) {
	case 32:
		return SchemeUnknown, true
	case 40:
		return SchemeSHA1, true
	case 56:
		return SchemeSHA224, true
	case 64:
		return SchemeSHA256, true
	case 96:
		return SchemeSHA384, true
	case 128:
		return SchemeSHA512, true
	default:
		return "", false
	}
}

func isHex(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
