package label

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// ErrBadCode is returned when a code attribute cannot be parsed.
var ErrBadCode = errors.New("malformed code attribute")

// CodePair is one key="value" entry of a code attribute, after value
// normalization.
type CodePair struct {
	Key   string
	Value string
}

// codeAttribute is the grammar of a code attribute such as
// se="4",ss="2",df="{producer}{producteur}".
type codeAttribute struct {
	Pairs []*codeEntry `@@ ( "," @@ )*`
}

type codeEntry struct {
	Key   string `@Key "="`
	Value string `@String`
}

var codeLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Key", Pattern: `[A-Za-z][A-Za-z0-9]*`},
	{Name: "String", Pattern: `"[^"]*"`},
	{Name: "Punct", Pattern: `[=,]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var codeParser = participle.MustBuild[codeAttribute](
	participle.Lexer(codeLexer),
	participle.Elide("Whitespace"),
)

// bilingualTerm matches a definition value of the form {english}{french}.
var bilingualTerm = regexp.MustCompile(`^\{([^}]*)\}\{([^}]*)\}$`)

// ParseCode parses a code attribute into ordered pairs. Definition values
// keep their English term verbatim. Other values naming several provisions
// ("3 to 5") keep the first, and stray parentheses are removed. A blank
// attribute yields no pairs.
func ParseCode(code string) ([]CodePair, error) {
	if strings.TrimSpace(code) == "" {
		return nil, nil
	}
	attr, err := codeParser.ParseString("", code)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrBadCode, code, err)
	}
	pairs := make([]CodePair, 0, len(attr.Pairs))
	for _, entry := range attr.Pairs {
		key := strings.ToLower(entry.Key)
		value := strings.TrimSuffix(strings.TrimPrefix(entry.Value, `"`), `"`)
		if key == KindDefinition.Code() {
			m := bilingualTerm.FindStringSubmatch(value)
			if m == nil {
				return nil, fmt.Errorf("%w %q: definition value %q", ErrBadCode, code, value)
			}
			pairs = append(pairs, CodePair{Key: key, Value: m[1]})
			continue
		}
		if strings.Contains(value, " to ") || strings.Contains(value, " and ") {
			value = strings.Fields(value)[0]
		}
		value = strings.Trim(value, "()")
		pairs = append(pairs, CodePair{Key: key, Value: value})
	}
	return pairs, nil
}

// FromCode builds a SectionLabel from section-kind code pairs.
func FromCode(pairs []CodePair) (SectionLabel, error) {
	numberings := make([]Numbering, 0, len(pairs))
	for _, p := range pairs {
		kind, err := ParseKind(p.Key)
		if err != nil {
			return SectionLabel{}, err
		}
		n, err := NewNumbering(kind, p.Value)
		if err != nil {
			return SectionLabel{}, err
		}
		numberings = append(numberings, n)
	}
	return New(numberings...), nil
}

// FormatCode renders a label back into code attribute form. Definitions are
// written with an empty French term.
func FormatCode(l SectionLabel) string {
	parts := make([]string, l.Len())
	for i := 0; i < l.Len(); i++ {
		n := l.At(i)
		value := n.Text()
		if n.Kind() == KindDefinition {
			value = "{" + value + "}{}"
		}
		parts[i] = n.Kind().Code() + `="` + value + `"`
	}
	return strings.Join(parts, ",")
}
