package parser

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/proclens/proclens/internal/model"
)

// LoadParquet reads an event log from a Parquet file through DuckDB's
// read_parquet, ordered by case and timestamp. DuckDB needs the file
// path rather than a stream, so Parquet bypasses the Parser interface.
func LoadParquet(ctx context.Context, path string, cfg Config) (*model.EventLog, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := fmt.Sprintf(`
		SELECT CAST("%s" AS VARCHAR), CAST("%s" AS VARCHAR)
		FROM read_parquet('%s')
		ORDER BY "%s", "%s"
	`, cfg.CaseIDColumn, cfg.ActivityColumn,
		escapePath(path), cfg.CaseIDColumn, cfg.TimestampColumn)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	log := &model.EventLog{}
	var current *model.Trace
	for rows.Next() {
		var caseID, activity string
		if err := rows.Scan(&caseID, &activity); err != nil {
			return nil, err
		}

		if current == nil || current.CaseID != caseID {
			log.Traces = append(log.Traces, model.Trace{CaseID: caseID})
			current = &log.Traces[len(log.Traces)-1]
		}
		current.Activities = append(current.Activities, model.Activity(activity))
	}
	return log, rows.Err()
}

func escapePath(path string) string {
	return strings.ReplaceAll(path, "'", "''")
}
