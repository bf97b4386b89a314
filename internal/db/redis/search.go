package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ftsync/internal/db"
	"github.com/kailas-cloud/ftsync/internal/domain/search/filter"
	"github.com/kailas-cloud/ftsync/internal/domain/search/order"
	"github.com/kailas-cloud/ftsync/internal/domain/search/phrase"
)

// Search runs the condition via FT.SEARCH. Limit 0 returns the total only.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	queryStr, err := buildQuery(q.Phrase, q.Filters)
	if err != nil {
		return nil, err
	}

	args := []string{s.index, queryStr}
	if q.Order != nil {
		args = append(args, "SORTBY", sortField(q.Order), sortDirection(q.Order))
	}
	args = append(args,
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)

	res, err := s.arbitrary(ctx, "FT.SEARCH", args...)
	if err != nil {
		return nil, err
	}
	raw, err := res.ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
			return nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseSearchResult(raw)
}

// --- Result parsing ---

func parseSearchResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/2)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entry, err := toEntry(key, parseFieldPairs(fields))
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// toEntry drops numeric shadows and maps hash fields back to attribute names.
func toEntry(key string, hash map[string]string) (db.SearchEntry, error) {
	entry := db.SearchEntry{Key: key, Fields: make(map[string]string, len(hash))}
	for name, value := range hash {
		switch {
		case name == textsField:
		case name == textsJSONField:
			if err := json.Unmarshal([]byte(value), &entry.Texts); err != nil {
				return db.SearchEntry{}, fmt.Errorf("decode texts of %s: %w", key, err)
			}
		case strings.HasSuffix(name, numSuffix):
		default:
			entry.Fields[attrName(name)] = value
		}
	}
	return entry, nil
}

// --- Query building ---

// buildQuery translates phrase and attribute conditions into an FT.SEARCH
// query string. An empty condition matches every document.
func buildQuery(p phrase.Phrase, expr filter.Expression) (string, error) {
	var parts []string

	for _, group := range p.Groups() {
		terms := make([]string, len(group))
		for i, t := range group {
			terms[i] = buildTerm(t)
		}
		parts = append(parts, fmt.Sprintf("@%s:(%s)", textsField, strings.Join(terms, " | ")))
	}
	for _, t := range p.Excluded() {
		parts = append(parts, fmt.Sprintf("-@%s:(%s)", textsField, buildTerm(t)))
	}

	for _, cond := range expr.Conditions() {
		part, err := buildCondition(cond)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}

	if len(parts) == 0 {
		return "*", nil
	}
	return strings.Join(parts, " "), nil
}

func buildTerm(t phrase.Term) string {
	switch {
	case t.IsQuoted():
		return `"` + phraseEscaper.Replace(t.Text()) + `"`
	case t.IsPrefix():
		return escapeQuery(t.Text()) + "*"
	default:
		return escapeQuery(t.Text())
	}
}

func buildCondition(cond filter.Condition) (string, error) {
	field := fieldName(cond.Attr())

	var (
		part     string
		inverted bool
	)
	if cond.Op().IsNumeric() {
		r, inv, err := cond.Bounds()
		if err != nil {
			return "", fmt.Errorf("%w: %v", db.ErrUnsupportedCondition, err)
		}
		part, inverted = buildNumericFilter(field+numSuffix, r), inv
	} else {
		if cond.Value() == "" {
			return "", fmt.Errorf("%w: empty value in %q", db.ErrUnsupportedCondition, cond.String())
		}
		v := tagEscaper.Replace(cond.Value())
		switch cond.Op() {
		case filter.StrEq:
			part = fmt.Sprintf("@%s:{%s}", field, v)
		case filter.StrNe:
			part, inverted = fmt.Sprintf("@%s:{%s}", field, v), true
		case filter.StrInc:
			part = fmt.Sprintf("@%s:{*%s*}", field, v)
		case filter.StrBw:
			part = fmt.Sprintf("@%s:{%s*}", field, v)
		case filter.StrEw:
			part = fmt.Sprintf("@%s:{*%s}", field, v)
		default:
			return "", fmt.Errorf("%w: %s", db.ErrUnsupportedCondition, cond.Op())
		}
	}

	if inverted != cond.Negated() {
		return "-" + part, nil
	}
	return part, nil
}

func buildNumericFilter(field string, r filter.Range) string {
	minBound := "-inf"
	maxBound := "+inf"

	if r.Min != nil {
		minBound = formatNumber(*r.Min)
		if r.MinExclusive {
			minBound = "(" + minBound
		}
	}
	if r.Max != nil {
		maxBound = formatNumber(*r.Max)
		if r.MaxExclusive {
			maxBound = "(" + maxBound
		}
	}

	return fmt.Sprintf("@%s:[%s %s]", field, minBound, maxBound)
}

func sortField(o *order.Order) string {
	f := fieldName(o.Attr())
	if o.Direction().IsNumeric() {
		return f + numSuffix
	}
	return f
}

func sortDirection(o *order.Order) string {
	if o.Direction().IsDescending() {
		return "DESC"
	}
	return "ASC"
}

// --- Query helpers ---

var tagEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"[", "\\[",
	"]", "\\]",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	"/", "\\/",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
	`.`, `\.`,
	`,`, `\,`,
	`/`, `\/`,
)

var phraseEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
