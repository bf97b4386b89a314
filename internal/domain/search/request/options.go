package request

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/kailas-cloud/ftsync/internal/domain"
)

// Option keys accepted by OptionsFromMap.
const (
	KeyLimit      = "limit"
	KeyOffset     = "offset"
	KeyOrder      = "order"
	KeyAttributes = "attributes"
	KeyRawMatches = "raw_matches"
	KeyCount      = "count"
	KeyAllTypes   = "all_types"
	KeyFind       = "find"
)

// FindOrder is the only find passthrough key kept for hydration; limit and
// offset are dropped.
const FindOrder = "order"

var columnRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// FindOrderClause validates a find order such as "comments_count desc" and
// returns it as "<column> ASC|DESC".
func FindOrderClause(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("find order must be a string, got %T", v)
	}
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields) > 2 || !columnRegex.MatchString(fields[0]) {
		return "", fmt.Errorf("invalid find order %q", s)
	}
	dir := "ASC"
	if len(fields) == 2 {
		dir = strings.ToUpper(fields[1])
		if dir != "ASC" && dir != "DESC" {
			return "", fmt.Errorf("invalid find order direction %q", fields[1])
		}
	}
	return fields[0] + " " + dir, nil
}

var validKeys = []string{
	KeyLimit, KeyOffset, KeyOrder, KeyAttributes,
	KeyRawMatches, KeyCount, KeyAllTypes, KeyFind,
}

// Options are the caller-facing search options. A nil Limit selects the
// default for the mode.
type Options struct {
	Limit      *int
	Offset     int
	Order      string
	Attributes []string
	RawMatches bool
	Count      bool
	AllTypes   bool
	Find       map[string]any
}

// WithLimit returns a copy of o with Limit set.
func (o Options) WithLimit(n int) Options {
	o.Limit = &n
	return o
}

// OptionsFromMap reads loosely typed options such as decoded JSON or query
// parameters. Unknown keys are a configuration error.
func OptionsFromMap(m map[string]any) (Options, error) {
	var o Options
	for k, v := range m {
		if !slices.Contains(validKeys, k) {
			return Options{}, domain.NewConfigurationError("", "unknown search option %q (valid: %v)", k, validKeys)
		}

		var err error
		switch k {
		case KeyLimit:
			var n int
			n, err = toInt(v)
			o.Limit = &n
		case KeyOffset:
			o.Offset, err = toInt(v)
		case KeyOrder:
			o.Order, err = toString(v)
		case KeyAttributes:
			o.Attributes, err = toStrings(v)
		case KeyRawMatches:
			o.RawMatches, err = toBool(v)
		case KeyCount:
			o.Count, err = toBool(v)
		case KeyAllTypes:
			o.AllTypes, err = toBool(v)
		case KeyFind:
			find, ok := v.(map[string]any)
			if !ok && v != nil {
				err = fmt.Errorf("want an object, got %T", v)
			}
			o.Find = maps.Clone(find)
		}
		if err != nil {
			return Options{}, domain.NewConfigurationError("", "search option %q: %v", k, err)
		}
	}
	return o, nil
}

func toInt(v any) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != float64(int(x)) {
			return 0, fmt.Errorf("%v is not an integer", x)
		}
		return int(x), nil
	case string:
		return strconv.Atoi(x)
	default:
		return 0, fmt.Errorf("want an integer, got %T", v)
	}
}

func toBool(v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		return strconv.ParseBool(x)
	default:
		return false, fmt.Errorf("want a boolean, got %T", v)
	}
}

func toString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("want a string, got %T", v)
	}
	return s, nil
}

func toStrings(v any) ([]string, error) {
	switch x := v.(type) {
	case string:
		return []string{x}, nil
	case []string:
		return slices.Clone(x), nil
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			s, err := toString(item)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("want a string or a list of strings, got %T", v)
	}
}
