package phrase

import (
	"fmt"
	"strings"
)

// MaxLength is the maximum accepted phrase length.
const MaxLength = 4096

// Term is a single search word or quoted phrase.
type Term struct {
	text   string
	prefix bool
	quoted bool
}

// Text returns the term without operators or quotes.
func (t Term) Text() string { return t.text }

// IsPrefix reports whether the term ended with "*".
func (t Term) IsPrefix() bool { return t.prefix }

// IsQuoted reports whether the term was an exact quoted phrase.
func (t Term) IsQuoted() bool { return t.quoted }

// Phrase is a parsed full-text query: a conjunction of OR-groups plus
// excluded terms. Words are joined by AND; "OR" or "|" joins neighbours into
// a group; "ANDNOT" or a "!" prefix excludes the next term; a trailing "*"
// matches by prefix; double quotes keep a multi-word phrase together.
type Phrase struct {
	raw      string
	groups   [][]Term
	excluded []Term
}

// Parse reads a phrase. An empty or blank phrase matches every document.
func Parse(s string) (Phrase, error) {
	if len(s) > MaxLength {
		return Phrase{}, fmt.Errorf("phrase too long (max %d chars)", MaxLength)
	}

	tokens, err := tokenize(s)
	if err != nil {
		return Phrase{}, err
	}

	p := Phrase{raw: strings.TrimSpace(s)}
	joinNext, excludeNext := false, false

	for _, tok := range tokens {
		if !tok.quoted {
			switch tok.text {
			case "AND", "&":
				continue
			case "OR", "|":
				if len(p.groups) == 0 || joinNext || excludeNext {
					return Phrase{}, fmt.Errorf("phrase %q: misplaced %s", s, tok.text)
				}
				joinNext = true
				continue
			case "ANDNOT":
				excludeNext = true
				continue
			}
			if strings.HasPrefix(tok.text, "!") {
				tok.text = tok.text[1:]
				excludeNext = true
			}
			if strings.HasSuffix(tok.text, "*") {
				tok.text = strings.TrimRight(tok.text, "*")
				tok.prefix = true
			}
			if tok.text == "" {
				return Phrase{}, fmt.Errorf("phrase %q: empty term", s)
			}
		}

		switch {
		case excludeNext:
			if joinNext {
				return Phrase{}, fmt.Errorf("phrase %q: cannot exclude inside an OR group", s)
			}
			p.excluded = append(p.excluded, tok)
			excludeNext = false
		case joinNext:
			last := len(p.groups) - 1
			p.groups[last] = append(p.groups[last], tok)
			joinNext = false
		default:
			p.groups = append(p.groups, []Term{tok})
		}
	}

	if joinNext || excludeNext {
		return Phrase{}, fmt.Errorf("phrase %q: dangling operator", s)
	}
	return p, nil
}

func tokenize(s string) ([]Term, error) {
	var out []Term
	rest := strings.TrimSpace(s)
	for rest != "" {
		if rest[0] == '"' {
			end := strings.IndexByte(rest[1:], '"')
			if end < 0 {
				return nil, fmt.Errorf("phrase %q: unterminated quote", s)
			}
			text := strings.TrimSpace(rest[1 : end+1])
			if text != "" {
				out = append(out, Term{text: text, quoted: true})
			}
			rest = strings.TrimSpace(rest[end+2:])
			continue
		}
		end := strings.IndexAny(rest, " \t\n\"")
		if end < 0 {
			end = len(rest)
		}
		out = append(out, Term{text: rest[:end]})
		rest = strings.TrimSpace(rest[end:])
	}
	return out, nil
}

// Groups returns the AND-ed OR-groups.
func (p Phrase) Groups() [][]Term { return p.groups }

// Excluded returns the terms that must not match.
func (p Phrase) Excluded() []Term { return p.excluded }

// IsEmpty reports whether the phrase matches every document.
func (p Phrase) IsEmpty() bool { return len(p.groups) == 0 && len(p.excluded) == 0 }

func (p Phrase) String() string { return p.raw }
