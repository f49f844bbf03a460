package hashcrack

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Type int

const (
	EmptyStrategyType Type = iota
	DictionaryStrategyType
	RuleDictionaryStrategyType
	MaskStrategyType
	CombinatorStrategyType
	HybridSuffixStrategyType
	HybridPrefixStrategyType
)

const (
	dictionaryStrategyName     = "dictionary"
	ruleDictionaryStrategyName = "rule-dictionary"
	maskStrategyName           = "mask"
	combinatorStrategyName     = "combinator"
	hybridSuffixStrategyName   = "hybrid-suffix"
	hybridPrefixStrategyName   = "hybrid-prefix"
)

var ErrUnknownStrategy = errors.New("unknown strategy")

func NewStrategy(strategyType Type, src Sources) (Strategy, error) {
	l := log.Logger
	switch strategyType {
	case DictionaryStrategyType:
		if len(src.Wordlists) != 1 {
			return nil, errors.New("dictionary needs one wordlist")
		}
		return newDictionaryStrategy(l, src.Wordlists[0], nil), nil
	case RuleDictionaryStrategyType:
		if len(src.Wordlists) != 1 || src.Rules == "" {
			return nil, errors.New("rule-dictionary needs one wordlist and a rules file")
		}
		rules, err := LoadRules(src.Rules)
		if err != nil {
			return nil, err
		}
		return newDictionaryStrategy(l, src.Wordlists[0], rules), nil
	case MaskStrategyType:
		mask, err := ParseMask(src.Mask)
		if err != nil {
			return nil, err
		}
		return newBruteForceStrategy(l, mask), nil
	case CombinatorStrategyType:
		if len(src.Wordlists) != 2 {
			return nil, errors.New("combinator needs two wordlists")
		}
		return newCombinatorStrategy(l, src.Wordlists[0], src.Wordlists[1]), nil
	case HybridSuffixStrategyType, HybridPrefixStrategyType:
		if len(src.Wordlists) != 1 {
			return nil, errors.New("hybrid needs one wordlist")
		}
		mask, err := ParseMask(src.Mask)
		if err != nil {
			return nil, err
		}
		return newHybridStrategy(l, src.Wordlists[0], mask, strategyType == HybridPrefixStrategyType), nil
	default:
		return nil, ErrUnknownStrategy
	}
}

func ParseStrategyName(name string) Type {
	switch name {
	case dictionaryStrategyName:
		return DictionaryStrategyType
	case ruleDictionaryStrategyName:
		return RuleDictionaryStrategyType
	case maskStrategyName:
		return MaskStrategyType
	case combinatorStrategyName:
		return CombinatorStrategyType
	case hybridSuffixStrategyName:
		return HybridSuffixStrategyType
	case hybridPrefixStrategyName:
		return HybridPrefixStrategyType
	default:
		return EmptyStrategyType
	}
}

func StrategyNames() []string {
	return []string{
		dictionaryStrategyName,
		ruleDictionaryStrategyName,
		maskStrategyName,
		combinatorStrategyName,
		hybridSuffixStrategyName,
		hybridPrefixStrategyName,
	}
}
