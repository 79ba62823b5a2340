package export

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jaydestro/GitHubRepoStats/internal/domain"
)

// EncodeJSON renders the tables as one JSON document keyed by stream name.
func EncodeJSON(tables []Table) ([]byte, error) {
	doc := make(map[string][]domain.Document, len(tables))
	for _, tbl := range tables {
		rows := tbl.Rows
		if rows == nil {
			rows = []domain.Document{}
		}
		doc[tbl.Spec.Name] = rows
	}
	return json.MarshalIndent(doc, "", "  ")
}

// WriteJSON writes the JSON rendering to a local file.
func WriteJSON(path string, tables []Table) error {
	data, err := EncodeJSON(tables)
	if err != nil {
		return fmt.Errorf("encode JSON export: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
