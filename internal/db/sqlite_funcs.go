package db

import (
	"database/sql/driver"
	"strings"

	"modernc.org/sqlite"
)

// Replaces SQLite's built-in lower(), which only folds ASCII, for every
// connection opened afterwards.
func init() {
	sqlite.MustRegisterDeterministicScalarFunction("lower", 1, unicodeLower)
}

func unicodeLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}
