// Package survey defines the raw tech-workplace survey schema and the
// ingestion path that loads it. The dataset is a fixed-schema delimited
// file of one respondent per row; downstream cleaning and training
// assume the column set declared here.
package survey

import "fmt"

// Column names of the raw survey file that the pipeline consumes.
// The file may carry extra columns (Timestamp, Country, comments, ...);
// those are ignored, but every column listed here must be present.
var RequiredColumns = []string{
	"Age",
	"Gender",
	"family_history",
	"treatment",
	"work_interfere",
	"no_employees",
	"remote_work",
	"tech_company",
	"benefits",
	"care_options",
	"wellness_program",
	"seek_help",
	"anonymity",
	"leave",
	"mental_health_consequence",
	"phys_health_consequence",
	"coworkers",
	"supervisor",
	"mental_health_interview",
	"phys_health_interview",
	"mental_vs_physical",
	"obs_consequence",
}

// Record is a single respondent keyed by column name. Values are kept
// as raw strings until the cleaner encodes them.
type Record map[string]string

// Table holds the raw survey data with column order preserved.
type Table struct {
	Columns []string
	Rows    []Record
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// DataFormatError reports a structural problem with the raw dataset,
// typically a required column that is absent.
type DataFormatError struct {
	Column string
	Reason string
}

func (e *DataFormatError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("data format: column %q %s", e.Column, e.Reason)
	}
	return fmt.Sprintf("data format: %s", e.Reason)
}
