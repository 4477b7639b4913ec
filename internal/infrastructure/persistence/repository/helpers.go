package repository

import (
	"database/sql"
	"fmt"
)

// expectRows fails when an update touched a different number of rows than want
func expectRows(result sql.Result, want int64, what string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n != want {
		return fmt.Errorf("%s %d: expected %d row(s) updated, got %d", what, id, want, n)
	}
	return nil
}
