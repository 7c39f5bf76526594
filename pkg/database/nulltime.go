package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// NullTime scans timestamps from either backend. SQLite hands aggregate results such
// as MAX(viewed_at) back as text because they carry no declared column type.
type NullTime struct {
	Time  time.Time
	Valid bool
}

// Scan implements sql.Scanner.
func (n *NullTime) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		n.Time, n.Valid = time.Time{}, false
		return nil
	case time.Time:
		n.Time, n.Valid = v.UTC(), true
		return nil
	case string:
		return n.parse(v)
	case []byte:
		return n.parse(string(v))
	default:
		return fmt.Errorf("unsupported timestamp type %T", value)
	}
}

func (n *NullTime) parse(raw string) error {
	raw = strings.TrimSuffix(raw, "Z")
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			n.Time, n.Valid = t.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", raw)
}

// Ptr returns nil for NULL values.
func (n NullTime) Ptr() *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}
