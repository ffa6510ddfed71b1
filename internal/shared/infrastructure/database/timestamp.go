package database

import (
	"database/sql"
	"fmt"
	"time"
)

// TimeArg encodes t as a query argument: a time for PostgreSQL
// TIMESTAMPTZ columns, unix milliseconds for SQLite INTEGER columns.
func (d Driver) TimeArg(t time.Time) any {
	if d == DriverSQLite {
		return t.UTC().UnixMilli()
	}
	return t.UTC()
}

// NullTimeArg is TimeArg for optional columns.
func (d Driver) NullTimeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return d.TimeArg(*t)
}

// ScanTime returns a scanner that fills dst from either encoding.
func ScanTime(dst *time.Time) sql.Scanner {
	return timeScanner{dst: dst}
}

// ScanNullTime returns a scanner that sets *dst to nil for NULL.
func ScanNullTime(dst **time.Time) sql.Scanner {
	return nullTimeScanner{dst: dst}
}

type timeScanner struct {
	dst *time.Time
}

func (s timeScanner) Scan(src any) error {
	t, ok, err := decodeTime(src)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("scan time: unexpected NULL")
	}
	*s.dst = t
	return nil
}

type nullTimeScanner struct {
	dst **time.Time
}

func (s nullTimeScanner) Scan(src any) error {
	t, ok, err := decodeTime(src)
	if err != nil {
		return err
	}
	if !ok {
		*s.dst = nil
		return nil
	}
	*s.dst = &t
	return nil
}

func decodeTime(src any) (time.Time, bool, error) {
	switch v := src.(type) {
	case nil:
		return time.Time{}, false, nil
	case time.Time:
		return v.UTC(), true, nil
	case int64:
		return time.UnixMilli(v).UTC(), true, nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		return t.UTC(), err == nil, err
	case []byte:
		t, err := time.Parse(time.RFC3339Nano, string(v))
		return t.UTC(), err == nil, err
	default:
		return time.Time{}, false, fmt.Errorf("scan time: unsupported type %T", src)
	}
}
