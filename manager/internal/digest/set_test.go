package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mixedSet() *Set {
	return NewSet(
		Digest{Scheme: SchemeUnknown, Value: md5Password},
		Digest{Scheme: SchemeMD5, Value: md5Admin},
		Digest{Scheme: SchemeSHA1, Value: sha1Hello},
		Digest{Scheme: SchemeSHA256, Value: sha256Hello},
	)
}

func TestSet_RemoveCountsOnlyPresent(t *testing.T) {
	set := mixedSet()

	n, err := set.Remove(md5Admin, "ffffffffffffffffffffffffffffffff", md5Admin)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 3, set.Len())
	assert.False(t, set.Contains(md5Admin))
}

func TestSet_FrozenRejectsRemove(t *testing.T) {
	set := mixedSet()
	set.Freeze()

	n, err := set.Remove(md5Admin)
	assert.ErrorIs(t, err, ErrFrozen)
	assert.Zero(t, n)
	assert.Equal(t, 4, set.Len())
}

func TestSet_SubsetForIsExact(t *testing.T) {
	set := mixedSet()

	md5 := set.SubsetFor(SchemeMD5)
	assert.Equal(t, []string{md5Admin}, md5.Values())
	assert.Equal(t, SchemeMD5, md5.Scheme())

	unknown := set.SubsetFor(SchemeUnknown)
	assert.Equal(t, []string{md5Password}, unknown.Values())

	assert.Zero(t, set.SubsetFor(SchemeNTLM).Len())
	assert.Equal(t, 4, set.Len(), "views never mutate the set")
}

func TestSet_TargetsWithoutSchemeSpreadsAmbiguousDigests(t *testing.T) {
	set := mixedSet()

	views := set.Targets("")
	require.Len(t, views, 4)

	assert.Equal(t, SchemeMD5, views[0].Scheme())
	assert.Equal(t, []string{md5Password, md5Admin}, views[0].Values())
	assert.Equal(t, SchemeNTLM, views[1].Scheme())
	assert.Equal(t, []string{md5Password}, views[1].Values())
	assert.Equal(t, SchemeSHA1, views[2].Scheme())
	assert.Equal(t, SchemeSHA256, views[3].Scheme())
}

func TestSet_TargetsWithSchemeExcludesAmbiguous(t *testing.T) {
	set := mixedSet()

	views := set.Targets(SchemeNTLM)
	assert.Empty(t, views)

	views = set.Targets(SchemeMD5)
	require.Len(t, views, 1)
	assert.Equal(t, []string{md5Admin}, views[0].Values())
}

func TestView_Without(t *testing.T) {
	view := NewView(SchemeMD5,
		Digest{Scheme: SchemeMD5, Value: md5Admin},
		Digest{Scheme: SchemeUnknown, Value: md5Password},
	)

	rest := view.Without(map[string]struct{}{md5Admin: {}})
	assert.Equal(t, []string{md5Password}, rest.Values())
	assert.Equal(t, 2, view.Len())

	_, ok := rest.Lookup(md5Admin)
	assert.False(t, ok)
}

func TestParseScheme(t *testing.T) {
	s, err := ParseScheme(" SHA256 ")
	require.NoError(t, err)
	assert.Equal(t, SchemeSHA256, s)
	assert.Equal(t, 64, s.HexLength())

	_, err = ParseScheme("bcrypt")
	assert.ErrorIs(t, err, ErrUnknownScheme)
}
