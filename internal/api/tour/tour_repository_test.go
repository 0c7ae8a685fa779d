package tour

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

var metricReader *sdkmetric.ManualReader

// TestMain installs a collectable MeterProvider before any repository call
// initializes the global instruments against the default noop provider.
func TestMain(m *testing.M) {
	metricReader = sdkmetric.NewManualReader()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(metricReader)))
	os.Exit(m.Run())
}

func queryErrorSum(t *testing.T) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, metricReader.Collect(context.Background(), &rm))

	var sum int64
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			if metric.Name != "db_query_errors_total" {
				continue
			}
			data, ok := metric.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range data.DataPoints {
				sum += dp.Value
			}
		}
	}
	return sum
}

func emptyTourRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "name", "slug", "duration", "max_group_size", "difficulty",
		"ratings_average", "ratings_quantity", "price", "price_discount",
		"summary", "description", "image_cover", "images", "start_dates",
		"start_lat", "start_lng", "start_location_description",
		"created_at", "updated_at",
	})
}

func TestQueryErrorMetric(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPostgresRepository(mock, testLogger())

	t.Run("failing query increments the error counter", func(t *testing.T) {
		before := queryErrorSum(t)

		mock.ExpectQuery(`SELECT \* FROM tours`).
			WithArgs(pgxmock.AnyArg()).
			WillReturnError(errors.New("connection reset by peer"))

		_, err := repo.Get(ctx, uuid.New())
		require.Error(t, err)

		assert.Equal(t, before+1, queryErrorSum(t))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row does not count as a query error", func(t *testing.T) {
		before := queryErrorSum(t)

		mock.ExpectQuery(`SELECT \* FROM tours`).
			WithArgs(pgxmock.AnyArg()).
			WillReturnRows(emptyTourRows())

		_, err := repo.Get(ctx, uuid.New())
		require.Error(t, err)

		assert.Equal(t, before, queryErrorSum(t))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
