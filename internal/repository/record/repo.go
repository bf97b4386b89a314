package record

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kailas-cloud/ftsync/internal/domain"
	domrec "github.com/kailas-cloud/ftsync/internal/domain/record"
	"github.com/kailas-cloud/ftsync/internal/domain/search/request"
	"github.com/kailas-cloud/ftsync/internal/domain/searchable"
)

// Column names every record table carries.
const (
	idColumn   = "id"
	typeColumn = "type"
)

var identRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Repo loads records from SQL tables. Every table has an integer "id"
// column; tables shared by a type hierarchy also have a "type" column.
type Repo struct {
	db      *sql.DB
	dialect Dialect
	reg     *searchable.Registry
	tables  map[string]string
}

// New creates a Repo. tables maps a type name to its table; types without an
// entry use the table of their hierarchy top, by default the lower-cased top
// name plus "s".
func New(db *sql.DB, dialect Dialect, reg *searchable.Registry, tables map[string]string) (*Repo, error) {
	for typeName, table := range tables {
		if !identRegex.MatchString(table) {
			return nil, domain.NewConfigurationError(typeName, "invalid table name %q", table)
		}
	}
	return &Repo{db: db, dialect: dialect, reg: reg, tables: tables}, nil
}

// Ping checks the database connection.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", r.dialect, err)
	}
	return nil
}

func (r *Repo) table(t *searchable.Type) string {
	if name, ok := r.tables[t.Name()]; ok {
		return name
	}
	if name, ok := r.tables[t.Top()]; ok {
		return name
	}
	return strings.ToLower(t.Top()) + "s"
}

// FetchByIDs loads the records of typeName (and its subtypes) with the
// given ids. Records come back in the order of ids unless find sets
// "order": "<column> [ASC|DESC]". Ids without a row are skipped.
func (r *Repo) FetchByIDs(
	ctx context.Context, typeName string, ids []string, find map[string]any,
) ([]*domrec.Record, error) {
	t, err := r.reg.Lookup(typeName)
	if err != nil {
		return nil, err
	}
	orderBy, err := findOrder(typeName, find)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	var (
		args  = make([]any, 0, len(ids))
		marks = make([]string, 0, len(ids))
	)
	for _, id := range ids {
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: invalid record id %q: %w", typeName, id, err)
		}
		args = append(args, n)
		marks = append(marks, r.dialect.placeholder(len(args)))
	}

	where := fmt.Sprintf("%s IN (%s)", idColumn, strings.Join(marks, ", "))
	query, args := r.selectQuery(t, where, args, orderBy)

	recs, err := r.query(ctx, t, query, args)
	if err != nil {
		return nil, err
	}
	if orderBy != "" {
		return recs, nil
	}

	byID := make(map[string]*domrec.Record, len(recs))
	for _, rec := range recs {
		byID[rec.IDString()] = rec
	}
	out := make([]*domrec.Record, 0, len(recs))
	for _, id := range ids {
		if rec, ok := byID[id]; ok {
			out = append(out, rec)
			delete(byID, id)
		}
	}
	return out, nil
}

// FetchAll loads every record of typeName and its subtypes, ordered by id.
func (r *Repo) FetchAll(ctx context.Context, typeName string) ([]*domrec.Record, error) {
	t, err := r.reg.Lookup(typeName)
	if err != nil {
		return nil, err
	}
	query, args := r.selectQuery(t, "", nil, idColumn+" ASC")
	return r.query(ctx, t, query, args)
}

func (r *Repo) selectQuery(t *searchable.Type, where string, args []any, orderBy string) (string, []any) {
	var conds []string
	if where != "" {
		conds = append(conds, where)
	}
	if t.InInheritance() {
		types := r.reg.Descendants(t.Name())
		marks := make([]string, len(types))
		for i, name := range types {
			args = append(args, name)
			marks[i] = r.dialect.placeholder(len(args))
		}
		conds = append(conds, fmt.Sprintf("%s IN (%s)", typeColumn, strings.Join(marks, ", ")))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT * FROM %s", r.table(t))
	if len(conds) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(conds, " AND "))
	}
	if orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(orderBy)
	}
	return sb.String(), args
}

func (r *Repo) query(ctx context.Context, t *searchable.Type, query string, args []any) ([]*domrec.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", r.table(t), err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", r.table(t), err)
	}

	var out []*domrec.Record
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.table(t), err)
		}

		attrs := make(map[string]any, len(cols))
		for i, c := range cols {
			attrs[c] = normalize(vals[i])
		}
		rec, err := r.toRecord(t, attrs)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", r.table(t), err)
	}
	return out, nil
}

// toRecord picks the concrete type from the type column when present.
func (r *Repo) toRecord(t *searchable.Type, attrs map[string]any) (*domrec.Record, error) {
	id, err := toInt64(attrs[idColumn])
	if err != nil {
		return nil, fmt.Errorf("%s row: %w", r.table(t), err)
	}

	concrete := t
	if name, ok := attrs[typeColumn].(string); ok && name != "" && t.InInheritance() {
		if sub, err := r.reg.Lookup(name); err == nil {
			concrete = sub
		}
	}
	return domrec.New(concrete.Name(), id, attrs, concrete.Watched()), nil
}

// findOrder validates the find passthrough and returns its ORDER BY clause.
func findOrder(typeName string, find map[string]any) (string, error) {
	var orderBy string
	for k, v := range find {
		if k != request.FindOrder {
			return "", domain.NewConfigurationError(typeName, "unsupported find option %q", k)
		}
		clause, err := request.FindOrderClause(v)
		if err != nil {
			return "", domain.NewConfigurationError(typeName, "%v", err)
		}
		orderBy = clause
	}
	return orderBy, nil
}

func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int32:
		return int64(x), nil
	case int:
		return int64(x), nil
	case float64:
		return int64(x), nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid id %q: %w", x, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("invalid id of type %T", v)
	}
}
