package redis

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/kailas-cloud/ftsync/internal/db"
)

// Internal hash fields. Registered attribute names never start with "__".
const (
	textsField     = "__texts"
	textsJSONField = "__texts_json"
	numSuffix      = "__num"
	sysPrefix      = "__sys_"
	// tagSeparator keeps commas inside attribute values from splitting tags.
	tagSeparator = "\x1f"
)

// fieldName maps an attribute to its hash field: "@title" -> "__sys_title".
func fieldName(attr string) string {
	if strings.HasPrefix(attr, "@") {
		return sysPrefix + attr[1:]
	}
	return attr
}

// attrName is the inverse of fieldName.
func attrName(field string) string {
	if strings.HasPrefix(field, sysPrefix) {
		return "@" + field[len(sysPrefix):]
	}
	return field
}

// EnsureIndex creates the FT index unless it already exists.
func (s *Store) EnsureIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	exists, err := s.IndexExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	args, err := buildCreateArgs(s.index, s.prefix, def)
	if err != nil {
		return err
	}
	res, err := s.arbitrary(ctx, "FT.CREATE", args...)
	if err != nil {
		return err
	}
	if err := res.Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return nil
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// IndexExists probes index existence via FT.INFO; "unknown index name" means absent.
func (s *Store) IndexExists(ctx context.Context) (bool, error) {
	res, err := s.arbitrary(ctx, "FT.INFO", s.index)
	if err != nil {
		return false, err
	}
	if err := res.Error(); err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return true, nil
}

// buildCreateArgs lays every attribute out as an exact-match TAG plus a
// NUMERIC shadow field, and the text blocks as one TEXT field.
func buildCreateArgs(index, prefix string, def *db.IndexDefinition) ([]string, error) {
	if index == "" {
		return nil, errors.New("index name is required")
	}
	if len(def.Fields) == 0 {
		return nil, errors.New("at least one field is required")
	}

	args := []string{index, "ON", "HASH", "PREFIX", "1", prefix, "SCHEMA"}
	for i := range def.Fields {
		f := &def.Fields[i]
		name := fieldName(f.Name)

		args = append(args, name, "TAG", "SEPARATOR", tagSeparator, "CASESENSITIVE")
		if f.Sortable {
			args = append(args, "SORTABLE")
		}
		args = append(args, name+numSuffix, "NUMERIC")
		if f.Sortable {
			args = append(args, "SORTABLE")
		}
	}
	args = append(args, textsField, "TEXT")
	return args, nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
