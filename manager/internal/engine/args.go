package engine

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/ykhdr/crack-campaign/manager/internal/digest"
	"github.com/ykhdr/crack-campaign/manager/internal/strategy"
)

type Flavor string

const (
	FlavorHashcat Flavor = "hashcat"
	FlavorWorker  Flavor = "worker"
)

var ErrUnknownFlavor = errors.New("unknown engine flavor")

// ArgBuilder renders a typed argument list for one invocation. Arguments are
// passed to the process as-is, never through a shell.
type ArgBuilder interface {
	Build(scheme digest.Scheme, d strategy.Descriptor, targetsPath string) ([]string, error)
	VersionArgs() []string
}

func NewArgBuilder(flavor Flavor) (ArgBuilder, error) {
	switch flavor {
	case FlavorHashcat, "":
		return hashcatArgs{}, nil
	case FlavorWorker:
		return workerArgs{}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownFlavor, "%q", flavor)
	}
}

var hashcatModes = map[digest.Scheme]int{
	digest.SchemeMD5:    0,
	digest.SchemeSHA1:   100,
	digest.SchemeNTLM:   1000,
	digest.SchemeSHA224: 1300,
	digest.SchemeSHA256: 1400,
	digest.SchemeSHA512: 1700,
	digest.SchemeSHA384: 10800,
}

var hashcatAttacks = map[strategy.Kind]int{
	strategy.KindDictionary:     0,
	strategy.KindRuleDictionary: 0,
	strategy.KindCombinator:     1,
	strategy.KindMask:           3,
	strategy.KindHybridSuffix:   6,
	strategy.KindHybridPrefix:   7,
}

type hashcatArgs struct{}

func (hashcatArgs) Build(scheme digest.Scheme, d strategy.Descriptor, targetsPath string) ([]string, error) {
	mode, ok := hashcatModes[scheme]
	if !ok {
		return nil, errors.Errorf("no hashcat mode for scheme %q", scheme)
	}
	attack, ok := hashcatAttacks[d.Kind]
	if !ok {
		return nil, errors.Errorf("no hashcat attack for kind %q", d.Kind)
	}
	args := []string{
		"-m", strconv.Itoa(mode),
		"-a", strconv.Itoa(attack),
		"--quiet",
		"--potfile-disable",
	}
	if rules := d.Rules(); rules != "" {
		args = append(args, "--rules-file="+rules)
	}
	// options end here: nothing positional may be read as a flag
	args = append(args, "--", targetsPath)
	// positional resources follow the descriptor order, which already matches
	// hashcat's expectations for hybrid attacks
	for _, r := range d.Resources {
		if r.Type == strategy.ResourceRules {
			continue
		}
		args = append(args, r.Ref)
	}
	return args, nil
}

func (hashcatArgs) VersionArgs() []string {
	return []string{"--version"}
}

var workerAttacks = map[strategy.Kind]string{
	strategy.KindDictionary:     "dictionary",
	strategy.KindRuleDictionary: "rule-dictionary",
	strategy.KindMask:           "mask",
	strategy.KindCombinator:     "combinator",
	strategy.KindHybridSuffix:   "hybrid-suffix",
	strategy.KindHybridPrefix:   "hybrid-prefix",
}

type workerArgs struct{}

func (workerArgs) Build(scheme digest.Scheme, d strategy.Descriptor, targetsPath string) ([]string, error) {
	if !scheme.IsConcrete() {
		return nil, errors.Errorf("worker needs a concrete scheme, got %q", scheme)
	}
	attack, ok := workerAttacks[d.Kind]
	if !ok {
		return nil, errors.Errorf("no worker attack for kind %q", d.Kind)
	}
	// values are bound with "=" so none of them can be taken for a flag
	args := []string{
		"crack",
		"--algorithm=" + string(scheme),
		"--attack=" + attack,
		"--targets=" + targetsPath,
	}
	for _, w := range d.Wordlists() {
		args = append(args, "--wordlist="+w)
	}
	if mask := d.Mask(); mask != "" {
		args = append(args, "--mask="+mask)
	}
	if rules := d.Rules(); rules != "" {
		args = append(args, "--rules="+rules)
	}
	return args, nil
}

func (workerArgs) VersionArgs() []string {
	return []string{"version"}
}
