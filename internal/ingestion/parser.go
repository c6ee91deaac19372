package ingestion

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors for file-level and row-level validation failures.
//
// File-level errors (empty file, unreadable CSV, missing required columns)
// abort parsing entirely; the batch records zero attempted rows. Row-level
// errors are recovered locally: the row is skipped, counted, and parsing
// continues.
var (
	ErrEmptyFile         = errors.New("file contains no data")
	ErrMissingHeader     = errors.New("file has no header row")
	ErrMissingColumn     = errors.New("required column missing from header")
	ErrRowFieldCount     = errors.New("row has wrong number of fields")
	ErrRowMissingField   = errors.New("required field is empty")
	ErrRowInvalidRate    = errors.New("coverage_rate is not a number")
	ErrRowRateOutOfRange = errors.New("coverage_rate outside [0, 100]")
	ErrRowInvalidDate    = errors.New("observation_date is not a calendar date")
)

// observationDateLayouts are accepted observation_date formats, tried in order.
var observationDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
}

type (
	// Parser validates and converts delimited coverage uploads into CoverageRecords.
	// Header names are resolved through the schema's column aliases, so one
	// parser serves every dataset family.
	Parser struct {
		schema *SchemaConfig
	}

	// RowError records one rejected row and the reason it was rejected.
	// Line is 1-based and counts the header row, matching what an operator
	// sees in a spreadsheet.
	RowError struct {
		Line int
		Err  error
	}

	// ParsedFile is the outcome of parsing one upload: the valid records,
	// the rejected rows, and the total data rows attempted.
	ParsedFile struct {
		Records       []CoverageRecord
		RowErrors     []RowError
		RowsAttempted int
	}
)

// NewParser creates a Parser bound to the given schema configuration.
// A nil schema falls back to the built-in column aliases.
func NewParser(schema *SchemaConfig) *Parser {
	if schema == nil {
		schema, _ = LoadSchemaConfig(DefaultSchemaConfigPath)
	}

	return &Parser{schema: schema}
}

// Parse reads an uploaded CSV file and validates every row against the
// coverage dataset schema.
//
// File-level failures (empty file, missing header, missing required columns)
// return an error and no ParsedFile. Row-level failures never abort the file:
// the offending row is recorded in RowErrors and parsing continues, so a
// single malformed row costs exactly one row.
func (p *Parser) Parse(data []byte) (*ParsedFile, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // row width validated per row for precise errors
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingHeader, err)
	}

	columns, err := p.resolveHeader(header)
	if err != nil {
		return nil, err
	}

	parsed := &ParsedFile{}
	line := 1 // header consumed

	for {
		line++

		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			// Malformed CSV row (bare quote, etc.) - reject the row, keep going.
			parsed.RowsAttempted++
			parsed.RowErrors = append(parsed.RowErrors, RowError{Line: line, Err: fmt.Errorf("%w: %w", ErrRowFieldCount, err)})

			continue
		}

		parsed.RowsAttempted++

		record, err := p.parseRow(columns, header, row)
		if err != nil {
			parsed.RowErrors = append(parsed.RowErrors, RowError{Line: line, Err: err})

			continue
		}

		parsed.Records = append(parsed.Records, record)
	}

	if parsed.RowsAttempted == 0 {
		return nil, ErrEmptyFile
	}

	return parsed, nil
}

// resolveHeader canonicalizes header names and verifies every required column
// is present. Returns a map from canonical column name to field index.
func (p *Parser) resolveHeader(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))

	for i, name := range header {
		canonical := p.schema.Canonicalize(name)
		if _, exists := columns[canonical]; !exists {
			columns[canonical] = i
		}
	}

	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	return columns, nil
}

// parseRow validates one data row and converts it into a CoverageRecord.
func (p *Parser) parseRow(columns map[string]int, header, row []string) (CoverageRecord, error) {
	if len(row) != len(header) {
		return CoverageRecord{}, fmt.Errorf("%w: got %d, want %d", ErrRowFieldCount, len(row), len(header))
	}

	field := func(column string) string {
		idx, ok := columns[column]
		if !ok || idx >= len(row) {
			return ""
		}

		return strings.TrimSpace(row[idx])
	}

	record := CoverageRecord{
		Country:     field(ColumnCountry),
		Location:    field(ColumnLocation),
		VaccineType: field(ColumnVaccineType),
		AgeGroup:    field(ColumnAgeGroup),
		Gender:      field(ColumnGender),
	}

	for _, required := range []struct {
		column string
		value  string
	}{
		{ColumnCountry, record.Country},
		{ColumnLocation, record.Location},
		{ColumnVaccineType, record.VaccineType},
		{ColumnAgeGroup, record.AgeGroup},
		{ColumnCoverageRate, field(ColumnCoverageRate)},
		{ColumnObservationDate, field(ColumnObservationDate)},
	} {
		if required.value == "" {
			return CoverageRecord{}, fmt.Errorf("%w: %s", ErrRowMissingField, required.column)
		}
	}

	rate, err := strconv.ParseFloat(field(ColumnCoverageRate), 64)
	if err != nil {
		return CoverageRecord{}, fmt.Errorf("%w: %q", ErrRowInvalidRate, field(ColumnCoverageRate))
	}

	if rate < 0 || rate > 100 {
		return CoverageRecord{}, fmt.Errorf("%w: %v", ErrRowRateOutOfRange, rate)
	}

	record.CoverageRate = rate

	date, err := parseObservationDate(field(ColumnObservationDate))
	if err != nil {
		return CoverageRecord{}, err
	}

	record.ObservationDate = date

	return record, nil
}

// parseObservationDate tries each accepted layout in order.
func parseObservationDate(value string) (time.Time, error) {
	for _, layout := range observationDateLayouts {
		if date, err := time.Parse(layout, value); err == nil {
			return date, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrRowInvalidDate, value)
}
