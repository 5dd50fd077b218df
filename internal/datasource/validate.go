package datasource

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vanderheijden86/assettree/pkg/loader"
)

// ValidateSource checks that the source is readable and holds records for
// companyID, setting Valid, ValidationError and RecordCount.
func ValidateSource(s *DataSource, companyID string) error {
	s.Valid = false
	s.ValidationError = ""
	s.RecordCount = 0

	err := validate(s, companyID)
	if err != nil {
		s.ValidationError = err.Error()
		return err
	}
	s.Valid = true
	return nil
}

func validate(s *DataSource, companyID string) error {
	switch s.Type {
	case SourceTypeSQLite:
		reader, err := NewSQLiteReader(*s)
		if err != nil {
			return err
		}
		defer reader.Close()
		if err := reader.CheckSchema(context.Background()); err != nil {
			return err
		}
		if companyID == "" {
			return nil
		}
		n, err := reader.CountRecords(context.Background(), companyID)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("no records for company %s", companyID)
		}
		s.RecordCount = n
		return nil

	case SourceTypeJSONDir:
		for _, base := range []string{loader.LocationsFile, loader.AssetsFile} {
			if _, err := loader.FindDataFile(s.Path, base); err != nil {
				return err
			}
		}
		ds, err := loader.LoadDataset(context.Background(), filepath.Dir(s.Path), filepath.Base(s.Path),
			loader.ParseOptions{WarningHandler: func(string) {}})
		if err != nil {
			return err
		}
		s.RecordCount = ds.Size()
		return nil

	default:
		return fmt.Errorf("unknown source type: %s", s.Type)
	}
}
