package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// jsonValue encodes v for a JSONB column.
// Returns JSON as string for compatibility with the simple query protocol.
func jsonValue(v interface{}) (driver.Value, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// jsonScan decodes a JSONB column into dest. NULL leaves dest untouched.
func jsonScan(value interface{}, dest interface{}, name string) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("type assertion to []byte failed for %s: got %T", name, value)
	}
}
