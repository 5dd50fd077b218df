package export

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/assettree/internal/datasource"
	"github.com/vanderheijden86/assettree/pkg/model"
)

// WriteSQLite stores one or more company datasets in the database at path,
// creating the schema read by the datasource package. Existing rows for the
// same companies are replaced; other companies are left alone.
func WriteSQLite(ctx context.Context, path string, datasets ...model.Dataset) (err error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		if cerr := db.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	if _, err := db.ExecContext(ctx, datasource.Schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	for _, ds := range datasets {
		if err := insertDataset(ctx, db, ds); err != nil {
			return fmt.Errorf("company %s: %w", ds.Company.ID, err)
		}
	}
	return nil
}

func insertDataset(ctx context.Context, db *sql.DB, ds model.Dataset) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	company := ds.Company.ID
	name := ds.Company.Name
	if name == "" {
		name = company
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO companies (id, name) VALUES (?, ?)`, company, name); err != nil {
		return fmt.Errorf("insert company: %w", err)
	}
	for _, table := range []string{"locations", "assets"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE company_id = ?`, company); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	locStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO locations (company_id, id, name, parent_id)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer locStmt.Close()
	for _, l := range ds.Locations {
		if _, err := locStmt.ExecContext(ctx, company, l.ID, l.Name, nullable(l.ParentID)); err != nil {
			return fmt.Errorf("insert location %s: %w", l.ID, err)
		}
	}

	assetStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO assets (company_id, id, name, parent_id, location_id, sensor_id, sensor_type, status, gateway_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer assetStmt.Close()
	for _, a := range ds.Assets {
		_, err := assetStmt.ExecContext(ctx, company, a.ID, a.Name,
			nullable(a.ParentID), nullable(a.LocationID), nullable(a.SensorID),
			nullable(string(a.SensorType)), nullable(string(a.Status)), nullable(a.GatewayID))
		if err != nil {
			return fmt.Errorf("insert asset %s: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
