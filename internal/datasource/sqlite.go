package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/assettree/pkg/metrics"
	"github.com/vanderheijden86/assettree/pkg/model"
)

// Schema creates the tables read by SQLiteReader. Rows keep insertion order
// through rowid, which is the order records are handed to the tree builder.
const Schema = `
CREATE TABLE IF NOT EXISTS companies (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS locations (
	company_id TEXT NOT NULL,
	id         TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	parent_id  TEXT
);
CREATE INDEX IF NOT EXISTS idx_locations_company ON locations(company_id);
CREATE TABLE IF NOT EXISTS assets (
	company_id  TEXT NOT NULL,
	id          TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	parent_id   TEXT,
	location_id TEXT,
	sensor_id   TEXT,
	sensor_type TEXT,
	status      TEXT,
	gateway_id  TEXT
);
CREATE INDEX IF NOT EXISTS idx_assets_company ON assets(company_id);
`

var requiredTables = []string{"companies", "locations", "assets"}

// SQLiteReader provides read access to an asset SQLite database
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a SQLite database for reading
func NewSQLiteReader(source DataSource) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	return &SQLiteReader{
		db:   db,
		path: source.Path,
	}, nil
}

// Close closes the database connection
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CheckSchema verifies that the expected tables exist.
func (r *SQLiteReader) CheckSchema(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table'`)
	if err != nil {
		return fmt.Errorf("reading schema of %s: %w", r.path, err)
	}
	defer rows.Close()

	have := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("reading schema of %s: %w", r.path, err)
		}
		have[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading schema of %s: %w", r.path, err)
	}

	var missing []string
	for _, t := range requiredTables {
		if !have[t] {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing tables %s", r.path, strings.Join(missing, ", "))
	}
	return nil
}

// CountRecords returns the number of locations plus assets for a company.
func (r *SQLiteReader) CountRecords(ctx context.Context, companyID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM locations WHERE company_id = ?)
		     + (SELECT COUNT(*) FROM assets WHERE company_id = ?)`,
		companyID, companyID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return count, nil
}

// LoadCompanies reads every company, ordered by name.
func (r *SQLiteReader) LoadCompanies(ctx context.Context) ([]model.Company, error) {
	defer metrics.Timer(metrics.SQLiteQuery)()

	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM companies ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("query companies: %w", err)
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			continue
		}
		companies = append(companies, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating companies: %w", err)
	}
	return companies, nil
}

// LoadDataset reads one company's records in insertion order. Unknown enum
// values are cleared and reported through warn.
func (r *SQLiteReader) LoadDataset(ctx context.Context, companyID string, warn func(string)) (model.Dataset, error) {
	defer metrics.Timer(metrics.DatasetLoad)()
	if warn == nil {
		warn = func(string) {}
	}

	ds := model.Dataset{Company: model.Company{ID: companyID, Name: companyID}}
	var name sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT name FROM companies WHERE id = ?`, companyID).Scan(&name)
	switch {
	case err == nil && name.Valid:
		ds.Company.Name = name.String
	case err != nil && err != sql.ErrNoRows:
		return model.Dataset{}, fmt.Errorf("query company %s: %w", companyID, err)
	}

	locs, err := r.loadLocations(ctx, companyID)
	if err != nil {
		return model.Dataset{}, err
	}
	assets, err := r.loadAssets(ctx, companyID, warn)
	if err != nil {
		return model.Dataset{}, err
	}
	ds.Locations = locs
	ds.Assets = assets
	return ds, nil
}

func (r *SQLiteReader) loadLocations(ctx context.Context, companyID string) ([]model.Location, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, parent_id FROM locations WHERE company_id = ? ORDER BY rowid`, companyID)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()

	var locs []model.Location
	for rows.Next() {
		var loc model.Location
		var parentID sql.NullString
		if err := rows.Scan(&loc.ID, &loc.Name, &parentID); err != nil {
			continue
		}
		loc.ParentID = parentID.String
		loc.Normalize()
		if loc.Validate() != nil {
			continue
		}
		locs = append(locs, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating locations: %w", err)
	}
	return locs, nil
}

func (r *SQLiteReader) loadAssets(ctx context.Context, companyID string, warn func(string)) ([]model.Asset, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, parent_id, location_id, sensor_id, sensor_type, status, gateway_id
		FROM assets WHERE company_id = ? ORDER BY rowid`, companyID)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	var assets []model.Asset
	for rows.Next() {
		var a model.Asset
		var parentID, locationID, sensorID, sensorType, status, gatewayID sql.NullString
		if err := rows.Scan(&a.ID, &a.Name, &parentID, &locationID, &sensorID, &sensorType, &status, &gatewayID); err != nil {
			continue
		}
		a.ParentID = parentID.String
		a.LocationID = locationID.String
		a.SensorID = sensorID.String
		a.SensorType = model.SensorType(sensorType.String)
		a.Status = model.Status(status.String)
		a.GatewayID = gatewayID.String

		for _, field := range a.Normalize() {
			warn(fmt.Sprintf("asset %s: ignoring unknown %s", a.ID, field))
		}
		if a.Validate() != nil {
			continue
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assets: %w", err)
	}
	return assets, nil
}
