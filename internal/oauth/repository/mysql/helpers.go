package mysql

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	apperrors "github.com/allisson/tokenkeeper/internal/errors"
)

// duplicateEntry is the MySQL error number for a unique key violation.
const duplicateEntry = 1062

func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == duplicateEntry
}

type rowScanner interface {
	Scan(dest ...any) error
}

// whereBuilder accumulates AND-ed conditions with ? placeholders.
type whereBuilder struct {
	conditions []string
	args       []any
}

func (w *whereBuilder) add(column string, value any) {
	w.conditions = append(w.conditions, column+" = ?")
	w.args = append(w.args, value)
}

func (w *whereBuilder) clause() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}

func marshalUUID(id uuid.UUID, name string) ([]byte, error) {
	data, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal "+name)
	}
	return data, nil
}

// nullableUUIDArg returns a nil argument for a nil id so the column stores NULL.
func nullableUUIDArg(id *uuid.UUID, name string) (any, error) {
	if id == nil {
		return nil, nil
	}
	return marshalUUID(*id, name)
}

func unmarshalNullableUUID(data []byte, name string) (*uuid.UUID, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var id uuid.UUID
	if err := id.UnmarshalBinary(data); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal "+name)
	}
	return &id, nil
}

func requireRow(result sql.Result, notFound error, entity string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows for "+entity)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

func changed(result sql.Result) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to get affected rows")
	}
	return rows > 0, nil
}
