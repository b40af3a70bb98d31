package query

import (
	"net/url"
	"reflect"
	"testing"

	"tourbook/pkg/config"

	"go.mongodb.org/mongo-driver/bson"
)

var tourAllowlists = Allowlists{
	Sort:   []string{"price", "ratingsAverage", "ratingsQuantity", "duration", "createdAt"},
	Fields: []string{"name", "price", "ratingsAverage", "ratingsQuantity", "duration", "difficulty", "summary"},
}

func mustParseQuery(t *testing.T, raw string) url.Values {
	t.Helper()
	values, err := url.ParseQuery(raw)
	if err != nil {
		t.Fatalf("failed to parse query %q: %v", raw, err)
	}
	return values
}

func TestFilter_StripsControlKeys(t *testing.T) {
	values := mustParseQuery(t, "sort=price&fields=name&page=2&limit=10&difficulty=easy")

	filter := New(values, tourAllowlists).Filter().FilterDoc()

	if len(filter) != 1 {
		t.Fatalf("expected 1 filter key, got %d: %v", len(filter), filter)
	}
	if filter["difficulty"] != "easy" {
		t.Errorf("expected difficulty=easy, got %v", filter["difficulty"])
	}
}

func TestFilter_RewritesComparisonOperators(t *testing.T) {
	tests := []struct {
		name  string
		query string
		field string
		want  bson.M
	}{
		{"gte", "price[gte]=500", "price", bson.M{"$gte": int64(500)}},
		{"lt", "duration[lt]=10", "duration", bson.M{"$lt": int64(10)}},
		{"float value", "ratingsAverage[gte]=4.5", "ratingsAverage", bson.M{"$gte": 4.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter := New(mustParseQuery(t, tt.query), tourAllowlists).Filter().FilterDoc()

			got, ok := filter[tt.field].(bson.M)
			if !ok {
				t.Fatalf("expected operator document for %s, got %T", tt.field, filter[tt.field])
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFilter_MergesOperatorsOnSameField(t *testing.T) {
	values := mustParseQuery(t, "price[gte]=100&price[lte]=500")

	filter := New(values, tourAllowlists).Filter().FilterDoc()

	sub, ok := filter["price"].(bson.M)
	if !ok {
		t.Fatalf("expected operator document, got %T", filter["price"])
	}
	if sub["$gte"] != int64(100) || sub["$lte"] != int64(500) {
		t.Errorf("expected merged range, got %v", sub)
	}
}

func TestFilter_PassesUnknownKeysThrough(t *testing.T) {
	values := mustParseQuery(t, "totallyUnknown=value")

	filter := New(values, tourAllowlists).Filter().FilterDoc()

	if filter["totallyUnknown"] != "value" {
		t.Errorf("unknown keys must pass through as equality filters, got %v", filter)
	}
}

func TestSort_AllowlistAndFallback(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  bson.D
	}{
		{"ascending", "sort=price", bson.D{{Key: "price", Value: 1}}},
		{"descending", "sort=-price", bson.D{{Key: "price", Value: -1}}},
		{"mixed list drops unknown", "sort=-price,bogus,duration", bson.D{{Key: "price", Value: -1}, {Key: "duration", Value: 1}}},
		{"unknown only falls back", "sort=bogus_field", bson.D{{Key: "createdAt", Value: -1}}},
		{"empty falls back", "", bson.D{{Key: "createdAt", Value: -1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := New(mustParseQuery(t, tt.query), tourAllowlists).Sort().FindOptions()

			got, ok := opts.Sort.(bson.D)
			if !ok {
				t.Fatalf("expected bson.D sort, got %T", opts.Sort)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSelect_AllowlistAndFallback(t *testing.T) {
	t.Run("allowed fields projected", func(t *testing.T) {
		opts := New(mustParseQuery(t, "fields=name,price"), tourAllowlists).Select().FindOptions()

		got, ok := opts.Projection.(bson.M)
		if !ok {
			t.Fatalf("expected bson.M projection, got %T", opts.Projection)
		}
		want := bson.M{"name": 1, "price": 1}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})

	t.Run("disallowed fields fall back to version exclusion", func(t *testing.T) {
		opts := New(mustParseQuery(t, "fields=password,secretTour"), tourAllowlists).Select().FindOptions()

		got, ok := opts.Projection.(bson.M)
		if !ok {
			t.Fatalf("expected bson.M projection, got %T", opts.Projection)
		}
		want := bson.M{versionField: 0}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
	})
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantSkip  int64
		wantLimit int64
	}{
		{"defaults", "", 0, config.DefaultPaginationLimit},
		{"page 2 limit 10 skips 10", "page=2&limit=10", 10, 10},
		{"page 5 limit 3", "page=5&limit=3", 12, 3},
		{"invalid page falls back", "page=abc&limit=10", 0, 10},
		{"zero page falls back", "page=0&limit=10", 0, 10},
		{"negative limit falls back", "limit=-1", 0, config.DefaultPaginationLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := New(mustParseQuery(t, tt.query), tourAllowlists).Paginate().FindOptions()

			if opts.Skip == nil || *opts.Skip != tt.wantSkip {
				t.Errorf("expected skip %d, got %v", tt.wantSkip, opts.Skip)
			}
			if opts.Limit == nil || *opts.Limit != tt.wantLimit {
				t.Errorf("expected limit %d, got %v", tt.wantLimit, opts.Limit)
			}
		})
	}
}

func TestChainedStages(t *testing.T) {
	values := mustParseQuery(t, "difficulty=easy&price[lt]=1000&sort=-price&fields=name,price&page=2&limit=5")

	f := New(values, tourAllowlists).Filter().Sort().Select().Paginate()

	filter := f.FilterDoc()
	if filter["difficulty"] != "easy" {
		t.Errorf("expected difficulty filter, got %v", filter)
	}
	if _, ok := filter["price"].(bson.M); !ok {
		t.Errorf("expected price range filter, got %v", filter["price"])
	}
	if _, ok := filter["sort"]; ok {
		t.Error("control key leaked into filter")
	}

	opts := f.FindOptions()
	if opts.Skip == nil || *opts.Skip != 5 {
		t.Errorf("expected skip 5, got %v", opts.Skip)
	}
}
