package strategy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ykhdr/crack-campaign/manager/internal/digest"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidate_Arity(t *testing.T) {
	dir := t.TempDir()
	words := writeFile(t, dir, "words.txt", "hello\npassword\n")
	rules := writeFile(t, dir, "best.rule", "c\n")

	valid := []Descriptor{
		Dictionary("dict", words, TierFast),
		MaskAttack("digits", "?d?d?d?d", TierMedium),
		{Kind: KindRuleDictionary, CostTier: TierFast, Resources: []Resource{{ResourceWordlist, words}, {ResourceRules, rules}}},
		{Kind: KindCombinator, CostTier: TierMedium, Resources: []Resource{{ResourceWordlist, words}, {ResourceWordlist, words}}},
		{Kind: KindHybridSuffix, CostTier: TierSlow, Resources: []Resource{{ResourceWordlist, words}, {ResourceMask, "?d?d"}}},
		{Kind: KindHybridPrefix, CostTier: TierSlow, Resources: []Resource{{ResourceMask, "?d?d"}, {ResourceWordlist, words}}},
	}
	for i, d := range valid {
		assert.NoError(t, d.Validate(i), d.DisplayName())
	}
	require.NoError(t, ValidateAll(valid))

	invalid := []Descriptor{
		{Kind: KindCombinator, CostTier: TierFast, Resources: []Resource{{ResourceWordlist, words}}},
		{Kind: KindHybridSuffix, CostTier: TierFast, Resources: []Resource{{ResourceMask, "?d"}, {ResourceWordlist, words}}},
		{Kind: "rainbow", CostTier: TierFast},
		{Kind: KindMask, CostTier: "glacial", Resources: []Resource{{ResourceMask, "?d"}}},
		{Kind: KindMask, CostTier: TierFast, Resources: []Resource{{ResourceMask, "?q"}}},
		{Kind: KindMask, CostTier: TierFast, TargetScheme: "bcrypt", Resources: []Resource{{ResourceMask, "?d"}}},
		{Kind: KindMask, CostTier: TierFast, TargetScheme: digest.SchemeUnknown, Resources: []Resource{{ResourceMask, "?d"}}},
	}
	for i, d := range invalid {
		err := d.Validate(i)
		var invalidErr *InvalidStrategyError
		require.ErrorAs(t, err, &invalidErr, "case %d", i)
		assert.Equal(t, i, invalidErr.Index)
	}
}

func TestValidate_Resources(t *testing.T) {
	dir := t.TempDir()
	empty := writeFile(t, dir, "empty.txt", "")
	missing := filepath.Join(dir, "missing.txt")

	cases := map[string]string{
		missing: "does not exist",
		empty:   "is empty",
		dir:     "not a regular file",
	}
	for ref, reason := range cases {
		err := Dictionary("dict", ref, TierFast).Validate(3)
		var invalidErr *InvalidStrategyError
		require.ErrorAs(t, err, &invalidErr)
		assert.Equal(t, ref, invalidErr.Resource)
		assert.Equal(t, 3, invalidErr.Index)
		assert.Contains(t, invalidErr.Reason, reason)
	}
}

func TestValidate_RejectsDashLeadingRefs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "-x", "password\n")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	for _, d := range []Descriptor{
		MaskAttack("m", "--outfile=/tmp/out?d", TierFast),
		MaskAttack("m", "-?d", TierFast),
		Dictionary("dict", "-x", TierFast),
	} {
		err := d.Validate(0)
		var invalidErr *InvalidStrategyError
		require.ErrorAs(t, err, &invalidErr, d.Resources[0].Ref)
		assert.Contains(t, invalidErr.Reason, "must not start with '-'")
	}

	plan, err := ReadPlan(strings.NewReader("phases:\n  - kind: dictionary\n    cost_tier: fast\n    resources:\n      - {type: wordlist, ref: -x}\n"), ".")
	require.NoError(t, err)
	require.Equal(t, "-x", plan.Phases[0].Resources[0].Ref)
	assert.Error(t, ValidateAll(plan.Phases))
}

func TestValidateAll_FirstFailure(t *testing.T) {
	dir := t.TempDir()
	words := writeFile(t, dir, "words.txt", "hello\n")
	err := ValidateAll([]Descriptor{
		Dictionary("ok", words, TierFast),
		Dictionary("broken", filepath.Join(dir, "nope.txt"), TierFast),
		Dictionary("also-broken", "", TierFast),
	})
	var invalidErr *InvalidStrategyError
	require.ErrorAs(t, err, &invalidErr)
	assert.Equal(t, 1, invalidErr.Index)
	assert.Equal(t, "broken", invalidErr.Name)
}

func TestEffectiveTimeout(t *testing.T) {
	d := MaskAttack("m", "?d", TierFast)
	assert.Equal(t, 5*time.Minute, d.EffectiveTimeout(Timeouts{}))
	assert.Equal(t, time.Hour, TierMedium.DefaultTimeout())
	assert.Equal(t, 24*time.Hour, TierSlow.DefaultTimeout())

	assert.Equal(t, time.Minute, d.EffectiveTimeout(Timeouts{Fast: time.Minute}))
	d.Timeout = 10 * time.Second
	assert.Equal(t, 10*time.Second, d.EffectiveTimeout(Timeouts{Fast: time.Minute}))
}

func TestLoadPlan(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "words.txt", "password\n")
	path := writeFile(t, dir, "plan.yaml", strings.Join([]string{
		"name: audit",
		"phases:",
		"  - name: common",
		"    kind: dictionary",
		"    cost_tier: fast",
		"    target_scheme: md5",
		"    timeout: 90s",
		"    resources:",
		"      - {type: wordlist, ref: words.txt}",
		"  - kind: hybrid_suffix",
		"    cost_tier: medium",
		"    resources:",
		"      - {type: wordlist, ref: words.txt}",
		"      - {type: mask, ref: '?d?d'}",
	}, "\n"))

	plan, err := LoadPlan(path)
	require.NoError(t, err)
	assert.Equal(t, "audit", plan.Name)
	require.Len(t, plan.Phases, 2)

	first := plan.Phases[0]
	assert.Equal(t, KindDictionary, first.Kind)
	assert.Equal(t, digest.SchemeMD5, first.TargetScheme)
	assert.Equal(t, 90*time.Second, first.Timeout)
	assert.Equal(t, []string{filepath.Join(dir, "words.txt")}, first.Wordlists())

	second := plan.Phases[1]
	assert.Equal(t, "hybrid_suffix", second.DisplayName())
	assert.Equal(t, "?d?d", second.Mask())
	assert.NoError(t, ValidateAll(plan.Phases))
}

func TestReadPlan_Rejects(t *testing.T) {
	_, err := ReadPlan(strings.NewReader(""), "")
	assert.ErrorIs(t, err, ErrEmptyPlan)

	_, err = ReadPlan(strings.NewReader("phases: []\n"), "")
	assert.ErrorIs(t, err, ErrEmptyPlan)

	_, err = ReadPlan(strings.NewReader("phases:\n  - kind: mask\n    budget: 3\n"), "")
	assert.Error(t, err)
}
