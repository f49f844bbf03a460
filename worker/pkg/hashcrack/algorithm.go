package hashcrack

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"strings"
	"unicode/utf16"

	"github.com/pkg/errors"
	"golang.org/x/crypto/md4"
)

type Algorithm string

const (
	MD5    Algorithm = "md5"
	NTLM   Algorithm = "ntlm"
	SHA1   Algorithm = "sha1"
	SHA224 Algorithm = "sha224"
	SHA256 Algorithm = "sha256"
	SHA384 Algorithm = "sha384"
	SHA512 Algorithm = "sha512"
)

var ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")

// Hasher returns the lower-case hex digest of a candidate.
type Hasher func(candidate string) string

func ParseAlgorithm(name string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(name)))
	if _, err := a.Hasher(); err != nil {
		return "", err
	}
	return a, nil
}

func (a Algorithm) Hasher() (Hasher, error) {
	var newHash func() hash.Hash
	switch a {
	case MD5:
		newHash = md5.New
	case SHA1:
		newHash = sha1.New
	case SHA224:
		newHash = sha256.New224
	case SHA256:
		newHash = sha256.New
	case SHA384:
		newHash = sha512.New384
	case SHA512:
		newHash = sha512.New
	case NTLM:
		return ntlm, nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedAlgorithm, "%q", string(a))
	}
	return func(candidate string) string {
		h := newHash()
		h.Write([]byte(candidate))
		return hex.EncodeToString(h.Sum(nil))
	}, nil
}

// ntlm is MD4 over the UTF-16LE encoding of the password.
func ntlm(candidate string) string {
	units := utf16.Encode([]rune(candidate))
	buf := make([]byte, 0, len(units)*2)
	for _, u := range units {
		buf = append(buf, byte(u), byte(u>>8))
	}
	h := md4.New()
	h.Write(buf)
	return hex.EncodeToString(h.Sum(nil))
}
