package query

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tourSpec() Spec {
	return Spec{
		Table: "tours",
		Columns: map[string]string{
			"name":           "name",
			"duration":       "duration",
			"difficulty":     "difficulty",
			"price":          "price",
			"ratingsAverage": "ratings_average",
			"createdAt":      "created_at",
		},
		Selectable:  []string{"id", "name", "duration", "difficulty", "price", "ratings_average", "created_at"},
		DefaultSort: "-createdAt",
	}
}

func TestParseFilters(t *testing.T) {
	t.Run("equality and comparison operators", func(t *testing.T) {
		values, err := url.ParseQuery("duration=5&price[gte]=500&ratingsAverage[lt]=4.8&difficulty=easy")
		require.NoError(t, err)

		d := Parse(values, tourSpec())

		require.Len(t, d.Filters, 4)
		byColumn := map[string]Filter{}
		for _, f := range d.Filters {
			byColumn[f.Column] = f
		}
		assert.Equal(t, Filter{Column: "duration", Op: "=", Value: int64(5)}, byColumn["duration"])
		assert.Equal(t, Filter{Column: "price", Op: ">=", Value: int64(500)}, byColumn["price"])
		assert.Equal(t, Filter{Column: "ratings_average", Op: "<", Value: 4.8}, byColumn["ratings_average"])
		assert.Equal(t, Filter{Column: "difficulty", Op: "=", Value: "easy"}, byColumn["difficulty"])
	})

	t.Run("control keys never become predicates", func(t *testing.T) {
		values, err := url.ParseQuery("page=2&sort=price&limit=10&fields=name&duration=5")
		require.NoError(t, err)

		d := Parse(values, tourSpec())

		require.Len(t, d.Filters, 1)
		assert.Equal(t, "duration", d.Filters[0].Column)
	})

	t.Run("unknown fields and malformed operators are dropped", func(t *testing.T) {
		values, err := url.ParseQuery("secret=true&price[between]=100&duration=5")
		require.NoError(t, err)

		d := Parse(values, tourSpec())

		require.Len(t, d.Filters, 1)
		assert.Equal(t, "duration", d.Filters[0].Column)
	})

	t.Run("repeated keys keep the first value", func(t *testing.T) {
		values, err := url.ParseQuery("duration=5&duration=9")
		require.NoError(t, err)

		d := Parse(values, tourSpec())

		require.Len(t, d.Filters, 1)
		assert.Equal(t, int64(5), d.Filters[0].Value)
	})
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name       string
		rawQuery   string
		wantPage   int
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", 1, 100, 0},
		{"page two limit ten", "page=2&limit=10", 2, 10, 10},
		{"non numeric falls back", "page=abc&limit=xyz", 1, 100, 0},
		{"zero and negative fall back", "page=0&limit=-5", 1, 100, 0},
		{"limit capped", "limit=99999", 1, 500, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.rawQuery)
			require.NoError(t, err)

			d := Parse(values, tourSpec())

			assert.Equal(t, tt.wantPage, d.Page)
			assert.Equal(t, tt.wantLimit, d.Limit)
			assert.Equal(t, tt.wantOffset, d.Offset)
		})
	}
}

func TestParseSort(t *testing.T) {
	t.Run("comma list with descending prefix", func(t *testing.T) {
		values, _ := url.ParseQuery("sort=-ratingsAverage,price")

		d := Parse(values, tourSpec())

		require.Len(t, d.Sorts, 2)
		assert.Equal(t, Sort{Column: "ratings_average", Desc: true}, d.Sorts[0])
		assert.Equal(t, Sort{Column: "price", Desc: false}, d.Sorts[1])
	})

	t.Run("default sorts by creation time descending", func(t *testing.T) {
		d := Parse(url.Values{}, tourSpec())

		require.Len(t, d.Sorts, 1)
		assert.Equal(t, Sort{Column: "created_at", Desc: true}, d.Sorts[0])
	})

	t.Run("unknown sort fields are dropped", func(t *testing.T) {
		values, _ := url.ParseQuery("sort=passwordHash,price")

		d := Parse(values, tourSpec())

		require.Len(t, d.Sorts, 1)
		assert.Equal(t, "price", d.Sorts[0].Column)
	})
}

func TestParseFields(t *testing.T) {
	t.Run("inclusion list maps to columns", func(t *testing.T) {
		values, _ := url.ParseQuery("fields=name,price,ratingsAverage")

		d := Parse(values, tourSpec())

		assert.Equal(t, []string{"name", "price", "ratings_average"}, d.Columns())
	})

	t.Run("default projection without fields key", func(t *testing.T) {
		d := Parse(url.Values{}, tourSpec())

		assert.Equal(t, tourSpec().Selectable, d.Columns())
	})
}

func TestBuildSelect(t *testing.T) {
	t.Run("full pipeline", func(t *testing.T) {
		values, _ := url.ParseQuery("price[gte]=500&sort=-price&fields=name,price&page=2&limit=10")

		d := Parse(values, tourSpec())
		sql, args := d.BuildSelect(nil)

		assert.Equal(t, "SELECT name, price FROM tours WHERE price >= $1 ORDER BY price DESC LIMIT $2 OFFSET $3", sql)
		assert.Equal(t, []any{int64(500), 10, 10}, args)
	})

	t.Run("scope predicate binds first", func(t *testing.T) {
		values, _ := url.ParseQuery("rating[gte]=4")

		spec := Spec{
			Table: "reviews",
			Columns: map[string]string{
				"rating":    "rating",
				"createdAt": "created_at",
			},
			Selectable:  []string{"id", "rating", "created_at"},
			DefaultSort: "-createdAt",
		}
		d := Parse(values, spec)
		sql, args := d.BuildSelect(&Scope{Column: "tour_id", Value: "t-1"})

		assert.Equal(t, "SELECT id, rating, created_at FROM reviews WHERE tour_id = $1 AND rating >= $2 ORDER BY created_at DESC LIMIT $3 OFFSET $4", sql)
		assert.Equal(t, []any{"t-1", int64(4), 100, 0}, args)
	})

	t.Run("count query carries predicates but no paging", func(t *testing.T) {
		values, _ := url.ParseQuery("difficulty=easy")

		d := Parse(values, tourSpec())
		sql, args := d.BuildCount(nil)

		assert.Equal(t, "SELECT COUNT(*) FROM tours WHERE difficulty = $1", sql)
		assert.Equal(t, []any{"easy"}, args)
	})
}
