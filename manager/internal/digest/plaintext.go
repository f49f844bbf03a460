package digest

import (
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

const (
	hexPrefix = "$HEX["
	hexSuffix = "]"
)

var ErrBadHexPlaintext = errors.New("bad $HEX plaintext")

// EncodePlaintext renders a plaintext for a line-oriented "digest:plaintext"
// file. Plaintexts with control or non-ASCII bytes, and plaintexts that would
// read back as $HEX[...], are written in hashcat's $HEX[...] form.
func EncodePlaintext(plaintext string) string {
	if !needsHex(plaintext) {
		return plaintext
	}
	return hexPrefix + hex.EncodeToString([]byte(plaintext)) + hexSuffix
}

// DecodePlaintext reverses EncodePlaintext. Text without the $HEX[...] wrapper
// is returned unchanged.
func DecodePlaintext(text string) (string, error) {
	if !isHexWrapped(text) {
		return text, nil
	}
	raw, err := hex.DecodeString(text[len(hexPrefix) : len(text)-len(hexSuffix)])
	if err != nil {
		return "", errors.Wrapf(ErrBadHexPlaintext, "%q", text)
	}
	return string(raw), nil
}

func isHexWrapped(text string) bool {
	return strings.HasPrefix(text, hexPrefix) && strings.HasSuffix(text, hexSuffix)
}

func needsHex(plaintext string) bool {
	if isHexWrapped(plaintext) {
		return true
	}
	for i := 0; i < len(plaintext); i++ {
		if c := plaintext[i]; c < 0x20 || c >= 0x7f {
			return true
		}
	}
	return false
}
