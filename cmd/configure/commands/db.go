package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/Azalea224/butler-service-backend/internal/config"
	"github.com/Azalea224/butler-service-backend/internal/database"
	"github.com/jedib0t/go-pretty/v6/table"
)

// openDB connects using DATABASE_URL only, so settings commands work without model or queue credentials
func openDB() (*database.DB, func(), error) {
	url, err := config.LoadDatabaseURL()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.New(url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
	}
	return db, closeDB, nil
}

func newTable(out io.Writer) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)
	return tw
}
