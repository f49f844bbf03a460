package digest

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePlaintext(t *testing.T) {
	cases := map[string]string{
		"password":      "password",
		"pass:word":     "pass:word",
		"a\nb":          "$HEX[610a62]",
		"tab\t":         "$HEX[74616209]",
		"caf\xc3\xa9":   "$HEX[636166c3a9]",
		"$HEX[61]":      "$HEX[244845585b36315d]",
		"$HEX[unclosed": "$HEX[unclosed",
	}
	for plain, want := range cases {
		assert.Equal(t, want, EncodePlaintext(plain), plain)
	}

	_, err := DecodePlaintext("$HEX[zz]")
	assert.ErrorIs(t, err, ErrBadHexPlaintext)
}

func TestPlaintext_RoundTrip_Property(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("encoded plaintexts stay on one line and decode back", prop.ForAll(
		func(plain string) bool {
			encoded := EncodePlaintext(plain)
			if strings.ContainsAny(encoded, "\r\n") {
				return false
			}
			decoded, err := DecodePlaintext(encoded)
			return err == nil && decoded == plain
		},
		gen.OneGenOf(
			gen.AnyString(),
			gen.AlphaString(),
			gen.RegexMatch(`^\$HEX\[[0-9a-f]{0,8}\]$`),
		),
	))

	properties.TestingRun(t)
}

func TestRecovered_PotLine(t *testing.T) {
	r := Recovered{Digest: Digest{Value: md5Password}, Plaintext: "x\ny"}
	line := r.PotLine()
	require.NotContains(t, line, "\n")
	assert.Equal(t, md5Password+":$HEX[780a79]", line)
}
