package strategy

import (
	"strings"
	"time"

	"github.com/ykhdr/crack-campaign/manager/internal/digest"
)

type Kind string

const (
	KindDictionary     Kind = "dictionary"
	KindRuleDictionary Kind = "rule_dictionary"
	KindMask           Kind = "mask"
	KindCombinator     Kind = "combinator"
	KindHybridSuffix   Kind = "hybrid_suffix"
	KindHybridPrefix   Kind = "hybrid_prefix"
)

type ResourceType string

const (
	ResourceWordlist ResourceType = "wordlist"
	ResourceMask     ResourceType = "mask"
	ResourceRules    ResourceType = "rules"
)

// arity is the ordered resource layout each kind expects.
var arity = map[Kind][]ResourceType{
	KindDictionary:     {ResourceWordlist},
	KindRuleDictionary: {ResourceWordlist, ResourceRules},
	KindMask:           {ResourceMask},
	KindCombinator:     {ResourceWordlist, ResourceWordlist},
	KindHybridSuffix:   {ResourceWordlist, ResourceMask},
	KindHybridPrefix:   {ResourceMask, ResourceWordlist},
}

func (k Kind) Known() bool {
	_, ok := arity[k]
	return ok
}

// Layout returns the resource types the kind expects, in order.
func (k Kind) Layout() []ResourceType {
	return append([]ResourceType(nil), arity[k]...)
}

func (k Kind) String() string {
	return string(k)
}

type CostTier string

const (
	TierFast   CostTier = "fast"
	TierMedium CostTier = "medium"
	TierSlow   CostTier = "slow"
)

var defaultTimeouts = map[CostTier]time.Duration{
	TierFast:   5 * time.Minute,
	TierMedium: time.Hour,
	TierSlow:   24 * time.Hour,
}

func (t CostTier) Known() bool {
	_, ok := defaultTimeouts[t]
	return ok
}

func (t CostTier) DefaultTimeout() time.Duration {
	return defaultTimeouts[t]
}

// Timeouts overrides the per-tier defaults. Zero fields keep the default.
type Timeouts struct {
	Fast   time.Duration
	Medium time.Duration
	Slow   time.Duration
}

func (t Timeouts) For(tier CostTier) time.Duration {
	var d time.Duration
	switch tier {
	case TierFast:
		d = t.Fast
	case TierMedium:
		d = t.Medium
	case TierSlow:
		d = t.Slow
	}
	if d > 0 {
		return d
	}
	return tier.DefaultTimeout()
}

type Resource struct {
	Type ResourceType `yaml:"type" json:"type" bson:"type"`
	Ref  string       `yaml:"ref" json:"ref" bson:"ref"`
}

// Descriptor is one attack phase. It is treated as immutable once validated.
type Descriptor struct {
	Name         string        `yaml:"name" json:"name" bson:"name"`
	Kind         Kind          `yaml:"kind" json:"kind" bson:"kind"`
	Resources    []Resource    `yaml:"resources" json:"resources" bson:"resources"`
	CostTier     CostTier      `yaml:"cost_tier" json:"cost_tier" bson:"cost_tier"`
	TargetScheme digest.Scheme `yaml:"target_scheme,omitempty" json:"target_scheme,omitempty" bson:"target_scheme,omitempty"`
	Timeout      time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" bson:"timeout,omitempty"`
}

// DisplayName falls back to the kind when the plan leaves the name empty.
func (d Descriptor) DisplayName() string {
	if strings.TrimSpace(d.Name) != "" {
		return d.Name
	}
	return string(d.Kind)
}

// EffectiveTimeout is the phase budget: the descriptor's own timeout, else the
// configured tier timeout, else the tier default.
func (d Descriptor) EffectiveTimeout(overrides Timeouts) time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	return overrides.For(d.CostTier)
}

func (d Descriptor) Wordlists() []string {
	return d.refs(ResourceWordlist)
}

func (d Descriptor) Mask() string {
	if refs := d.refs(ResourceMask); len(refs) > 0 {
		return refs[0]
	}
	return ""
}

func (d Descriptor) Rules() string {
	if refs := d.refs(ResourceRules); len(refs) > 0 {
		return refs[0]
	}
	return ""
}

func (d Descriptor) refs(t ResourceType) []string {
	var out []string
	for _, r := range d.Resources {
		if r.Type == t {
			out = append(out, r.Ref)
		}
	}
	return out
}

// Dictionary builds a single-wordlist descriptor, as used by the quick-run
// CLI flags.
func Dictionary(name, wordlist string, tier CostTier) Descriptor {
	return Descriptor{
		Name:      name,
		Kind:      KindDictionary,
		Resources: []Resource{{Type: ResourceWordlist, Ref: wordlist}},
		CostTier:  tier,
	}
}

func MaskAttack(name, mask string, tier CostTier) Descriptor {
	return Descriptor{
		Name:      name,
		Kind:      KindMask,
		Resources: []Resource{{Type: ResourceMask, Ref: mask}},
		CostTier:  tier,
	}
}
