package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/symdex/internal/db"
	"github.com/kailas-cloud/symdex/internal/domain/search/filter"
)

const defaultVectorField = "vector"

// SearchKNN runs a KNN vector similarity search via FT.SEARCH. Entries come
// back best first.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}
	field := q.Field
	if field == "" {
		field = defaultVectorField
	}

	pre, err := s.preFilter(ctx, q.Filters, q.IDs, q.ExcludeIDs)
	if err != nil {
		return nil, err
	}

	knnPart := fmt.Sprintf("[KNN %d @%s $BLOB AS %s]", q.K, field, db.FieldScore)
	var queryStr string
	if pre != "" {
		queryStr = fmt.Sprintf("(%s)=>%s", pre, knnPart)
	} else {
		queryStr = "*=>" + knnPart
	}

	args := []string{q.IndexName, queryStr}

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)+1))
		args = append(args, q.ReturnFields...)
		args = append(args, db.FieldScore)
	}

	args = append(args,
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"LIMIT", "0", strconv.Itoa(q.K),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseKNNResult(raw, q.RawScores)
}

// SearchList runs a filter-only search. valkey-search cannot serve queries
// without a KNN clause, so that flavor scans the collection keys and
// evaluates the filter client-side.
func (s *Store) SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}
	if s.flavor == FlavorValkey {
		return s.scanList(ctx, q)
	}

	queryStr, err := s.preFilter(ctx, q.Filters, q.IDs, nil)
	if err != nil {
		return nil, err
	}
	if queryStr == "" {
		queryStr = "*"
	}

	args := []string{q.IndexName, queryStr}
	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}
	args = append(args,
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseListResult(raw)
}

func (s *Store) scanList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	keys, err := s.Scan(ctx, indexToKeyPrefix(q.IndexName)+"*")
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	hashes, err := s.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, err
	}

	var ids map[string]bool
	if len(q.IDs) > 0 {
		ids = make(map[string]bool, len(q.IDs))
		for _, id := range q.IDs {
			ids[id] = true
		}
	}

	var matched []db.SearchEntry
	for i, fields := range hashes {
		if len(fields) == 0 {
			continue
		}
		if ids != nil && !ids[fields[db.FieldID]] {
			continue
		}
		if !matches(q.Filters, fields) {
			continue
		}
		matched = append(matched, db.SearchEntry{Key: keys[i], Fields: project(fields, q.ReturnFields)})
	}

	res := &db.SearchResult{Total: len(matched)}
	if q.Offset < len(matched) {
		end := min(len(matched), q.Offset+q.Limit)
		res.Entries = matched[q.Offset:end]
	}
	return res, nil
}

// indexToKeyPrefix maps "{prefix}{collection}:idx" to "{prefix}{collection}:".
func indexToKeyPrefix(index string) string {
	return strings.TrimSuffix(index, "idx")
}

func project(fields map[string]string, keep []string) map[string]string {
	if len(keep) == 0 {
		return fields
	}
	out := make(map[string]string, len(keep))
	for _, k := range keep {
		if v, ok := fields[k]; ok {
			out[k] = v
		}
	}
	return out
}

// --- Result parsing ---

func parseKNNResult(raw []rueidis.RedisMessage, rawScores bool) (*db.SearchResult, error) {
	res, err := parseListResult(raw)
	if err != nil {
		return nil, err
	}

	for i := range res.Entries {
		e := &res.Entries[i]
		scoreStr, ok := e.Fields[db.FieldScore]
		if !ok {
			continue
		}
		if d, err := strconv.ParseFloat(scoreStr, 64); err == nil {
			if rawScores {
				e.Score = d
			} else {
				e.Score = max(0, 1.0-d) // cosine distance → similarity, clamped to [0,1]
			}
		}
		delete(e.Fields, db.FieldScore)
	}

	sort.SliceStable(res.Entries, func(i, j int) bool {
		if rawScores {
			return res.Entries[i].Score < res.Entries[j].Score
		}
		return res.Entries[i].Score > res.Entries[j].Score
	})

	return res, nil
}

func parseListResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
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

	entries := make([]db.SearchEntry, 0, len(raw)/2)
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

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		})
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

// --- Filter building ---

// preFilter combines the payload filter with point ID restrictions.
func (s *Store) preFilter(ctx context.Context, expr filter.Expression, ids, exclude []string) (string, error) {
	f, err := buildFilter(expr, s.SupportsTextSearch(ctx))
	if err != nil {
		return "", err
	}
	var parts []string
	if f != "" {
		parts = append(parts, f)
	}
	if len(ids) > 0 {
		parts = append(parts, buildTagSet(db.FieldID, ids))
	}
	if len(exclude) > 0 {
		parts = append(parts, "-"+buildTagSet(db.FieldID, exclude))
	}
	return strings.Join(parts, " "), nil
}

// buildFilter translates filter.Expression into an FT.SEARCH query string.
func buildFilter(expr filter.Expression, textSearch bool) (string, error) {
	if expr.IsEmpty() {
		return "", nil
	}

	var parts []string

	for _, cond := range expr.Must() {
		c, err := buildCondition(cond, textSearch)
		if err != nil {
			return "", err
		}
		if c != "" {
			parts = append(parts, c)
		}
	}

	if len(expr.Should()) > 0 {
		should := make([]string, 0, len(expr.Should()))
		for _, cond := range expr.Should() {
			c, err := buildCondition(cond, textSearch)
			if err != nil {
				return "", err
			}
			if c != "" {
				should = append(should, c)
			}
		}
		if len(should) > 0 {
			parts = append(parts, "("+strings.Join(should, " | ")+")")
		}
	}

	for _, cond := range expr.MustNot() {
		c, err := buildCondition(cond, textSearch)
		if err != nil {
			return "", err
		}
		if c != "" {
			parts = append(parts, "-"+c)
		}
	}

	return strings.Join(parts, " "), nil
}

func buildCondition(cond filter.Condition, textSearch bool) (string, error) {
	if cond.IsNested() {
		inner, err := buildFilter(*cond.Nested(), textSearch)
		if err != nil || inner == "" {
			return "", err
		}
		return "(" + inner + ")", nil
	}

	var parts []string
	if cond.IsMatch() {
		m, err := buildMatch(cond.Key(), *cond.Match(), textSearch)
		if err != nil {
			return "", err
		}
		parts = append(parts, m)
	}
	if cond.IsRange() {
		parts = append(parts, buildNumericFilter(cond.Key(), *cond.Range()))
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, " ") + ")", nil
}

func buildMatch(key string, m filter.Match, textSearch bool) (string, error) {
	switch m.Kind() {
	case filter.MatchValue:
		return buildValueSet(key, []any{m.Value()}), nil
	case filter.MatchAny:
		return buildValueSet(key, m.Values()), nil
	case filter.MatchExcept:
		return "-" + buildValueSet(key, m.Values()), nil
	case filter.MatchText:
		if !textSearch {
			return "", fmt.Errorf("text match on %q: %w", key, db.ErrUnsupportedQuery)
		}
		return fmt.Sprintf("@%s:(%s)", key, escapeQuery(m.Text())), nil
	}
	return "", fmt.Errorf("match kind %s: %w", m.Kind(), db.ErrUnsupportedQuery)
}

// buildValueSet matches key against any of values. Strings and bools are tags;
// integers are single-point numeric ranges.
func buildValueSet(key string, values []any) string {
	var tags []string
	var numeric []string
	for _, v := range values {
		switch x := v.(type) {
		case int64:
			n := strconv.FormatInt(x, 10)
			numeric = append(numeric, fmt.Sprintf("@%s:[%s %s]", key, n, n))
		case bool:
			tags = append(tags, strconv.FormatBool(x))
		default:
			tags = append(tags, fmt.Sprint(x))
		}
	}

	var parts []string
	if len(tags) > 0 {
		parts = append(parts, buildTagSet(key, tags))
	}
	parts = append(parts, numeric...)
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " | ") + ")"
}

func buildTagSet(key string, values []string) string {
	escaped := make([]string, len(values))
	for i, v := range values {
		escaped[i] = tagEscaper.Replace(v)
	}
	return fmt.Sprintf("@%s:{%s}", key, strings.Join(escaped, " | "))
}

func buildNumericFilter(key string, r filter.Range) string {
	minBound := "-inf"
	maxBound := "+inf"

	if r.GT() != nil {
		minBound = fmt.Sprintf("(%g", *r.GT())
	} else if r.GTE() != nil {
		minBound = fmt.Sprintf("%g", *r.GTE())
	}

	if r.LT() != nil {
		maxBound = fmt.Sprintf("(%g", *r.LT())
	} else if r.LTE() != nil {
		maxBound = fmt.Sprintf("%g", *r.LTE())
	}

	return fmt.Sprintf("@%s:[%s %s]", key, minBound, maxBound)
}

// --- Query helpers ---

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
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
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
