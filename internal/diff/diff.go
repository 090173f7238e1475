// Package diff computes the differences between a table's live column set
// and its declared expected schema. It is pure: no I/O, total functions.
package diff

import (
	"strings"

	"github.com/schemamend/schemamend/internal/catalog"
	"github.com/schemamend/schemamend/internal/registry"
	"github.com/schemamend/schemamend/internal/typecompat"
)

// MissingColumn is an expected column absent from the live table.
type MissingColumn struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// TypeMismatch is a live column whose stored type requires conversion.
// Column carries the actual on-disk name (original case), which is the name
// any repair statement must target. ExpectedSpec keeps the declared spec
// with its parameters so a repair can honor the precision.
type TypeMismatch struct {
	Column       string `json:"column"`
	ActualType   string `json:"actual_type"`
	ExpectedType string `json:"expected_type"`
	ExpectedSpec string `json:"expected_spec"`
}

// SchemaDiff is the computed drift for one table. It is a value object,
// discarded after use.
type SchemaDiff struct {
	Table          string          `json:"table"`
	MissingColumns []MissingColumn `json:"missing_columns,omitempty"`
	TypeMismatches []TypeMismatch  `json:"type_mismatches,omitempty"`
}

// Clean reports whether the table matches its expected schema.
func (d SchemaDiff) Clean() bool {
	return len(d.MissingColumns) == 0 && len(d.TypeMismatches) == 0
}

// Analyze compares the live columns of table against its expected schema.
// Column matching is case-insensitive. Required columns are checked for
// presence and type; optional columns only for type, since their absence is
// not drift.
func Analyze(table string, actual []catalog.Column, expected registry.TableSchema) SchemaDiff {
	d := SchemaDiff{Table: table}
	lookup := catalog.Lookup(actual)

	for _, spec := range expected.Required {
		col, ok := lookup[strings.ToLower(spec.Name)]
		if !ok {
			d.MissingColumns = append(d.MissingColumns, MissingColumn{
				Name:     spec.Name,
				Type:     spec.Type,
				Required: true,
			})
			continue
		}
		d.appendMismatch(col, spec)
	}

	for _, spec := range expected.Optional {
		if col, ok := lookup[strings.ToLower(spec.Name)]; ok {
			d.appendMismatch(col, spec)
		}
	}

	return d
}

func (d *SchemaDiff) appendMismatch(col catalog.Column, spec registry.ColumnSpec) {
	expectedBase := typecompat.BaseType(spec.Type)
	if typecompat.NeedsConversion(col.DataType, col.UDTName, expectedBase) {
		d.TypeMismatches = append(d.TypeMismatches, TypeMismatch{
			Column:       col.Name,
			ActualType:   strings.ToLower(col.DataType),
			ExpectedType: expectedBase,
			ExpectedSpec: spec.Type,
		})
	}
}
