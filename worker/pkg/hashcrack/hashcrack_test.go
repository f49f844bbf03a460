package hashcrack

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func TestAlgorithm_KnownDigests(t *testing.T) {
	cases := map[Algorithm]string{
		MD5:    "5f4dcc3b5aa765d61d8327deb882cf99",
		NTLM:   "8846f7eaee8fb117ad06bdd830b7586c",
		SHA1:   "5baa61e4c9b93f3f0682250b6cf8331b7ee68fd8",
		SHA256: "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8",
	}
	for algorithm, want := range cases {
		t.Run(string(algorithm), func(t *testing.T) {
			hasher, err := algorithm.Hasher()
			require.NoError(t, err)
			assert.Equal(t, want, hasher("password"))
		})
	}
}

func TestParseAlgorithm_Unsupported(t *testing.T) {
	_, err := ParseAlgorithm("bcrypt")
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestParseMask(t *testing.T) {
	m, err := ParseMask("a?d?l")
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len())

	n, ok := m.Keyspace()
	require.True(t, ok)
	assert.Equal(t, uint64(260), n)
	assert.Equal(t, "a0a", m.At(0))
	assert.Equal(t, "a0b", m.At(1))
	assert.Equal(t, "a9z", m.At(259))

	m, err = ParseMask("??x")
	require.NoError(t, err)
	assert.Equal(t, "?x", m.At(0))

	for _, bad := range []string{"", "abc?", "?z"} {
		_, err := ParseMask(bad)
		assert.ErrorIs(t, err, ErrInvalidMask, bad)
	}
}

func TestMask_KeyspaceOverflow(t *testing.T) {
	m, err := ParseMask(strings.Repeat("?b", 9))
	require.NoError(t, err)
	_, ok := m.Keyspace()
	assert.False(t, ok)
}

func TestParseRule(t *testing.T) {
	cases := map[string]string{
		":":       "password",
		"u":       "PASSWORD",
		"c":       "Password",
		"c $1":    "Password1",
		"^!r":     "drowssap!",
		"sa@ so0": "p@ssw0rd",
		"d":       "passwordpassword",
		"]]":      "passwo",
		"{":       "asswordp",
		"}":       "dpasswor",
	}
	for text, want := range cases {
		rule, err := ParseRule(text)
		require.NoError(t, err, text)
		assert.Equal(t, want, rule.Apply("password"), text)
	}

	_, err := ParseRule("X")
	assert.ErrorIs(t, err, ErrInvalidRule)
	_, err = ParseRule("$")
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestCrack_Dictionary(t *testing.T) {
	wordlist := writeFile(t, "words.txt", "hello", "password", "admin")
	strategy, err := NewStrategy(DictionaryStrategyType, Sources{Wordlists: []string{wordlist}})
	require.NoError(t, err)

	var out bytes.Buffer
	res, err := Crack(context.Background(), Job{
		Algorithm: MD5,
		Strategy:  strategy,
		Targets:   []string{"5F4DCC3B5AA765D61D8327DEB882CF99", "ffffffffffffffffffffffffffffffff"},
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Found)
	assert.Equal(t, 1, res.Remaining)
	assert.Equal(t, uint64(3), res.Tested)
	assert.Equal(t, "5f4dcc3b5aa765d61d8327deb882cf99:password\n", out.String())
}

func TestCrack_StopsWhenAllFound(t *testing.T) {
	wordlist := writeFile(t, "words.txt", "password", "hello", "admin")
	strategy, err := NewStrategy(DictionaryStrategyType, Sources{Wordlists: []string{wordlist}})
	require.NoError(t, err)

	var out bytes.Buffer
	res, err := Crack(context.Background(), Job{
		Algorithm: MD5,
		Strategy:  strategy,
		Targets:   []string{"5f4dcc3b5aa765d61d8327deb882cf99"},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Tested)
}

func TestCrack_MaskAndHybrid(t *testing.T) {
	mask, err := NewStrategy(MaskStrategyType, Sources{Mask: "?d?d?d"})
	require.NoError(t, err)
	var out bytes.Buffer
	_, err = Crack(context.Background(), Job{
		Algorithm: MD5,
		Strategy:  mask,
		Targets:   []string{"202cb962ac59075b964b07152d234b70"},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, "202cb962ac59075b964b07152d234b70:123\n", out.String())

	wordlist := writeFile(t, "words.txt", "admin", "password")
	hybrid, err := NewStrategy(HybridSuffixStrategyType, Sources{Wordlists: []string{wordlist}, Mask: "?d"})
	require.NoError(t, err)
	hasher, _ := SHA1.Hasher()
	target := hasher("password1")
	out.Reset()
	_, err = Crack(context.Background(), Job{Algorithm: SHA1, Strategy: hybrid, Targets: []string{target}}, &out)
	require.NoError(t, err)
	assert.Equal(t, target+":password1\n", out.String())

	prefix, err := NewStrategy(HybridPrefixStrategyType, Sources{Wordlists: []string{wordlist}, Mask: "?d"})
	require.NoError(t, err)
	target = hasher("7admin")
	out.Reset()
	_, err = Crack(context.Background(), Job{Algorithm: SHA1, Strategy: prefix, Targets: []string{target}}, &out)
	require.NoError(t, err)
	assert.Equal(t, target+":7admin\n", out.String())
}

func TestCrack_CombinatorAndRules(t *testing.T) {
	left := writeFile(t, "left.txt", "blue", "red")
	right := writeFile(t, "right.txt", "sky", "fish")
	combinator, err := NewStrategy(CombinatorStrategyType, Sources{Wordlists: []string{left, right}})
	require.NoError(t, err)
	hasher, _ := SHA256.Hasher()
	var out bytes.Buffer
	_, err = Crack(context.Background(), Job{
		Algorithm: SHA256,
		Strategy:  combinator,
		Targets:   []string{hasher("redfish")},
	}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), ":redfish")

	rules := writeFile(t, "best.rule", "# comment", ":", "c $1")
	ruled, err := NewStrategy(RuleDictionaryStrategyType, Sources{Wordlists: []string{left}, Rules: rules})
	require.NoError(t, err)
	out.Reset()
	_, err = Crack(context.Background(), Job{
		Algorithm: SHA256,
		Strategy:  ruled,
		Targets:   []string{hasher("Blue1")},
	}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), ":Blue1")
}

func TestCrack_CancelledContext(t *testing.T) {
	mask, err := NewStrategy(MaskStrategyType, Sources{Mask: "?a?a?a?a?a?a"})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Crack(ctx, Job{Algorithm: MD5, Strategy: mask, Targets: []string{"ffffffffffffffffffffffffffffffff"}}, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, res.Tested, uint64(ctxCheckInterval))
}

func TestNewStrategy_ArityErrors(t *testing.T) {
	_, err := NewStrategy(DictionaryStrategyType, Sources{})
	assert.Error(t, err)
	_, err = NewStrategy(CombinatorStrategyType, Sources{Wordlists: []string{"a"}})
	assert.Error(t, err)
	_, err = NewStrategy(ParseStrategyName("teleport"), Sources{})
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}
