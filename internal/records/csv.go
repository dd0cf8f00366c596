// Package records reads recipient records from a CSV file with a header row.
package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"email-dispatcher/internal/models"
)

const (
	ColumnEmail          = "email"
	ColumnCompany        = "company"
	ColumnContactName    = "contact_name"
	ColumnRolePreference = "role_preference"
	ColumnSubject        = "subject"
)

// CSVSource yields one record per data row. Unknown columns are ignored and
// missing columns read as empty strings.
type CSVSource struct {
	r       *csv.Reader
	columns map[string]int
	row     int
}

func NewCSVSource(r io.Reader) (*CSVSource, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	s := &CSVSource{r: cr, columns: map[string]int{}}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := s.columns[key]; !dup {
			s.columns[key] = i
		}
	}
	return s, nil
}

// Next returns the next record or io.EOF.
func (s *CSVSource) Next() (models.Record, error) {
	if len(s.columns) == 0 {
		return models.Record{}, io.EOF
	}
	fields, err := s.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return models.Record{}, io.EOF
		}
		return models.Record{}, fmt.Errorf("failed to read csv row %d: %w", s.row+1, err)
	}
	s.row++

	return models.Record{
		Row:             s.row,
		Email:           s.field(fields, ColumnEmail),
		Company:         s.field(fields, ColumnCompany),
		ContactName:     s.field(fields, ColumnContactName),
		RolePreference:  s.field(fields, ColumnRolePreference),
		SubjectOverride: s.field(fields, ColumnSubject),
	}, nil
}

func (s *CSVSource) field(fields []string, column string) string {
	i, ok := s.columns[column]
	if !ok || i >= len(fields) {
		return ""
	}
	return fields[i]
}

// File is a CSVSource backed by an open file.
type File struct {
	*CSVSource
	f *os.File
}

// Open opens the CSV file at path.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open records file: %w", err)
	}
	src, err := NewCSVSource(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &File{CSVSource: src, f: f}, nil
}

func (f *File) Close() error {
	return f.f.Close()
}
