package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the log-only view of an error: the typed classification plus
// whatever the database driver said about a violated constraint.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`
	Reason     Reason `json:"reason,omitempty"`
	Retryable  bool   `json:"retryable,omitempty"`
	Details    any    `json:"details,omitempty"`

	Chain []string `json:"chain,omitempty"`

	DBCode       string `json:"db_code,omitempty"`
	DBConstraint string `json:"db_constraint,omitempty"`
	DBTable      string `json:"db_table,omitempty"`
	DBColumn     string `json:"db_column,omitempty"`
	DBDetail     string `json:"db_detail,omitempty"`
	DBMessage    string `json:"db_message,omitempty"`
}

// sqlite reports constraint failures only through the message text.
var sqliteConstraintPrefixes = map[string]string{
	"CHECK constraint failed: ":       "CHECK",
	"UNIQUE constraint failed: ":      "UNIQUE",
	"NOT NULL constraint failed: ":    "NOT NULL",
	"FOREIGN KEY constraint failed":   "FOREIGN KEY",
	"PRIMARY KEY constraint failed: ": "PRIMARY KEY",
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
		d.Reason = te.Reason()
		d.Retryable = MetadataFor(te.Code()).Retryable
		d.Details = te.Details()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.DBCode = pgxErr.Code
		d.DBConstraint = pgxErr.ConstraintName
		d.DBTable = pgxErr.TableName
		d.DBColumn = pgxErr.ColumnName
		d.DBDetail = pgxErr.Detail
		d.DBMessage = pgxErr.Message
		return d
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.DBCode = string(pqErr.Code)
		d.DBConstraint = pqErr.Constraint
		d.DBTable = pqErr.Table
		d.DBColumn = pqErr.Column
		d.DBDetail = pqErr.Detail
		d.DBMessage = pqErr.Message
		return d
	}

	fillSQLiteConstraint(&d, err)
	return d
}

func fillSQLiteConstraint(d *ErrorDump, err error) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		msg := e.Error()
		for prefix, kind := range sqliteConstraintPrefixes {
			idx := strings.Index(msg, prefix)
			if idx < 0 {
				continue
			}
			d.DBCode = kind
			d.DBMessage = msg[idx:]
			target := strings.TrimSpace(msg[idx+len(prefix):])
			// UNIQUE and NOT NULL name table.column; CHECK names the constraint
			if table, column, ok := strings.Cut(target, "."); ok && kind != "CHECK" {
				d.DBTable = table
				d.DBColumn = strings.Split(column, ",")[0]
			} else {
				d.DBConstraint = target
			}
			return
		}
	}
}
