package hashcrack

import (
	"bufio"
	"io"
	"os"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

var ErrInvalidRule = errors.New("invalid rule")

// Rule is one line of a rule file: a chain of word transformations. Only a
// subset of the hashcat rule language is understood.
type Rule struct {
	text  string
	steps []func(string) string
}

func (r Rule) String() string {
	return r.text
}

func (r Rule) Apply(word string) string {
	for _, step := range r.steps {
		word = step(word)
	}
	return word
}

func LoadRules(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open rules")
	}
	defer func() { _ = f.Close() }()
	return ReadRules(f)
}

func ReadRules(r io.Reader) ([]Rule, error) {
	var rules []Rule
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rule, err := ParseRule(line)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineNo)
		}
		rules = append(rules, rule)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read rules")
	}
	return rules, nil
}

func ParseRule(text string) (Rule, error) {
	rule := Rule{text: text}
	for i := 0; i < len(text); i++ {
		c := text[i]
		var step func(string) string
		switch c {
		case ' ', ':':
			continue
		case 'l':
			step = strings.ToLower
		case 'u':
			step = strings.ToUpper
		case 'c':
			step = capitalize
		case 'C':
			step = func(w string) string { return invert(capitalize(w)) }
		case 't':
			step = invert
		case 'r':
			step = reverse
		case 'd':
			step = func(w string) string { return w + w }
		case 'f':
			step = func(w string) string { return w + reverse(w) }
		case '{':
			step = rotateLeft
		case '}':
			step = rotateRight
		case '[':
			step = func(w string) string {
				if w == "" {
					return w
				}
				return w[1:]
			}
		case ']':
			step = func(w string) string {
				if w == "" {
					return w
				}
				return w[:len(w)-1]
			}
		case '$', '^':
			if i+1 >= len(text) {
				return Rule{}, errors.Wrapf(ErrInvalidRule, "%q: %c needs a character", text, c)
			}
			i++
			ch := string(text[i])
			if c == '$' {
				step = func(w string) string { return w + ch }
			} else {
				step = func(w string) string { return ch + w }
			}
		case 's':
			if i+2 >= len(text) {
				return Rule{}, errors.Wrapf(ErrInvalidRule, "%q: s needs two characters", text)
			}
			from, to := string(text[i+1]), string(text[i+2])
			i += 2
			step = func(w string) string { return strings.ReplaceAll(w, from, to) }
		default:
			return Rule{}, errors.Wrapf(ErrInvalidRule, "%q: unsupported function %q", text, string(c))
		}
		rule.steps = append(rule.steps, step)
	}
	return rule, nil
}

func capitalize(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
}

func invert(w string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsUpper(r) {
			return unicode.ToLower(r)
		}
		return unicode.ToUpper(r)
	}, w)
}

func reverse(w string) string {
	b := []byte(w)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

func rotateLeft(w string) string {
	if len(w) < 2 {
		return w
	}
	return w[1:] + w[:1]
}

func rotateRight(w string) string {
	if len(w) < 2 {
		return w
	}
	return w[len(w)-1:] + w[:len(w)-1]
}
