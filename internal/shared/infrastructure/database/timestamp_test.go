package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeArg(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 30, 0, 0, time.FixedZone("CEST", 2*3600))

	assert.Equal(t, ts.UTC().UnixMilli(), DriverSQLite.TimeArg(ts))
	assert.Equal(t, ts.UTC(), DriverPostgres.TimeArg(ts))
	assert.Nil(t, DriverSQLite.NullTimeArg(nil))
}

func TestScanTime(t *testing.T) {
	want := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)

	sources := map[string]any{
		"unix millis": want.UnixMilli(),
		"time":        want.In(time.FixedZone("X", 3600)),
		"rfc3339":     want.Format(time.RFC3339Nano),
		"bytes":       []byte(want.Format(time.RFC3339Nano)),
	}
	for name, src := range sources {
		t.Run(name, func(t *testing.T) {
			var got time.Time
			require.NoError(t, ScanTime(&got).Scan(src))
			assert.True(t, want.Equal(got))
			assert.Equal(t, time.UTC, got.Location())
		})
	}

	t.Run("null is an error for required columns", func(t *testing.T) {
		var got time.Time
		assert.Error(t, ScanTime(&got).Scan(nil))
	})

	t.Run("unsupported type", func(t *testing.T) {
		var got time.Time
		assert.Error(t, ScanTime(&got).Scan(3.14))
	})
}

func TestScanNullTime(t *testing.T) {
	existing := time.Now()
	got := &existing

	require.NoError(t, ScanNullTime(&got).Scan(nil))
	assert.Nil(t, got)

	require.NoError(t, ScanNullTime(&got).Scan(int64(1000)))
	require.NotNil(t, got)
	assert.Equal(t, int64(1000), got.UnixMilli())
}
