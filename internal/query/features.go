package query

import (
	"net/url"
	"strconv"
	"strings"

	"tourbook/pkg/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const versionField = "__v"

// control keys are stripped from the filter stage; they drive the other
// stages instead.
var controlKeys = map[string]bool{
	"sort":   true,
	"fields": true,
	"page":   true,
	"limit":  true,
}

var comparisonOps = map[string]string{
	"gte": "$gte",
	"gt":  "$gt",
	"lte": "$lte",
	"lt":  "$lt",
}

// Allowlists bounds what a caller can sort and project by. Arbitrary-field
// equality filtering is allowed by design; sorting and projection are not.
type Allowlists struct {
	Sort   []string
	Fields []string
}

func (a Allowlists) sortAllowed(field string) bool {
	return contains(a.Sort, field)
}

func (a Allowlists) fieldAllowed(field string) bool {
	return contains(a.Fields, field)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// Features stages an untrusted URL query onto a Mongo filter document and
// find options. Stages are chainable and independent; the usual order is
// Filter → Sort → Select → Paginate.
type Features struct {
	raw    url.Values
	allow  Allowlists
	filter bson.M
	opts   *options.FindOptions
}

func New(raw url.Values, allow Allowlists) *Features {
	return &Features{
		raw:    raw,
		allow:  allow,
		filter: bson.M{},
		opts:   options.Find(),
	}
}

// Filter strips control keys, rewrites gte/gt/lte/lt bracket suffixes into
// Mongo operator syntax and passes every remaining key through as an
// equality match. Unknown keys are not validated against a schema.
func (f *Features) Filter() *Features {
	for key, values := range f.raw {
		if controlKeys[key] || len(values) == 0 {
			continue
		}

		field, op, isComparison := splitComparisonKey(key)
		if field == "" {
			continue
		}

		value := coerceValue(values[0])

		if isComparison {
			sub, ok := f.filter[field].(bson.M)
			if !ok {
				sub = bson.M{}
			}
			sub[op] = value
			f.filter[field] = sub
			continue
		}

		f.filter[field] = value
	}

	return f
}

// Sort maps a comma-separated list of field / -field tokens to sort
// directives. Fields outside the allow-list are silently dropped; an empty
// result falls back to descending creation time.
func (f *Features) Sort() *Features {
	sort := bson.D{}

	for _, token := range splitList(f.raw.Get("sort")) {
		field := strings.TrimPrefix(token, "-")
		if !f.allow.sortAllowed(field) {
			continue
		}

		direction := 1
		if strings.HasPrefix(token, "-") {
			direction = -1
		}
		sort = append(sort, bson.E{Key: field, Value: direction})
	}

	if len(sort) == 0 {
		sort = bson.D{{Key: "createdAt", Value: -1}}
	}

	f.opts.SetSort(sort)
	return f
}

// Select applies the projection allow-list; an empty result falls back to
// excluding only the internal version field.
func (f *Features) Select() *Features {
	projection := bson.M{}

	for _, field := range splitList(f.raw.Get("fields")) {
		if f.allow.fieldAllowed(field) {
			projection[field] = 1
		}
	}

	if len(projection) == 0 {
		projection = bson.M{versionField: 0}
	}

	f.opts.SetProjection(projection)
	return f
}

// Paginate computes skip=(page-1)*limit with page defaulting to 1 and limit
// to the shared pagination default. The limit has no upper cap.
func (f *Features) Paginate() *Features {
	page := positiveInt(f.raw.Get("page"), 1)
	limit := config.NormalizePaginationLimit(positiveInt(f.raw.Get("limit"), 0))

	f.opts.SetSkip(int64(page-1) * int64(limit))
	f.opts.SetLimit(int64(limit))
	return f
}

// FilterDoc returns the staged filter document.
func (f *Features) FilterDoc() bson.M {
	return f.filter
}

// FindOptions returns the staged sort/projection/pagination options.
func (f *Features) FindOptions() *options.FindOptions {
	return f.opts
}

// splitComparisonKey recognizes "field[op]" keys. Anything else is returned
// as a plain field name.
func splitComparisonKey(key string) (field, op string, ok bool) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return key, "", false
	}

	mongoOp, known := comparisonOps[key[open+1:len(key)-1]]
	if !known {
		return "", "", false
	}

	return key[:open], mongoOp, true
}

func coerceValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if fl, err := strconv.ParseFloat(s, 64); err == nil {
		return fl
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func positiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
