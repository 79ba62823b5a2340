// Package export renders canonical per-stream datasets as spreadsheet and
// JSON artifacts and uploads them to blob storage. Temporal fields are
// already strings by the time rows arrive here; nothing in this package
// touches native time values.
package export

import (
	"github.com/jaydestro/GitHubRepoStats/internal/domain"
)

// Table is one stream's canonical dataset with its fixed column order.
type Table struct {
	Spec domain.StreamSpec
	Rows []domain.Document
}

// NewTable pairs a stream's rows with its export contract.
func NewTable(sp domain.StreamSpec, rows []domain.Document) Table {
	return Table{Spec: sp, Rows: rows}
}

// cell resolves a column value for rendering; absent fields render empty.
func cell(row domain.Document, column string) any {
	v, ok := row[column]
	if !ok || v == nil {
		return ""
	}
	return v
}
