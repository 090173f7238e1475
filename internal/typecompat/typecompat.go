package typecompat

import (
	"regexp"
	"strings"
)

// synonyms maps every known spelling of a PostgreSQL type to its canonical
// form. Both catalog output and expected-schema declarations are normalized
// through this table before comparison.
var synonyms = map[string]string{
	"character varying":           "varchar",
	"char":                        "character",
	"int":                         "int4",
	"integer":                     "int4",
	"serial":                      "int4",
	"bigint":                      "int8",
	"bigserial":                   "int8",
	"smallint":                    "int2",
	"real":                        "float4",
	"double precision":            "float8",
	"numeric":                     "decimal",
	"bool":                        "boolean",
	"timestamp without time zone": "timestamp",
	"timestamp with time zone":    "timestamptz",
}

// criticalMismatches holds the (actual, expected) canonical pairs that are
// unsafe to read without an explicit conversion. Pairs not listed here are
// treated as compatible, so an unrecognized type never spuriously reports a
// mismatch.
var criticalMismatches = map[[2]string]bool{
	{"text", "date"}:         true,
	{"varchar", "date"}:      true,
	{"text", "decimal"}:      true,
	{"varchar", "decimal"}:   true,
	{"text", "int4"}:         true,
	{"varchar", "int4"}:      true,
	{"text", "timestamp"}:    true,
	{"varchar", "timestamp"}: true,
}

// Canonical normalizes a type name through the synonym table.
func Canonical(typeName string) string {
	t := strings.ToLower(strings.TrimSpace(typeName))
	if c, ok := synonyms[t]; ok {
		return c
	}
	return t
}

var baseTypePattern = regexp.MustCompile(`^([a-z][a-z0-9_]*(?: [a-z][a-z0-9_]*)*)`)

// BaseType strips parameters from a type spec: "DECIMAL(10,2)" yields
// "decimal", "VARCHAR(100)" yields "varchar", "DATE" yields "date".
func BaseType(typeSpec string) string {
	s := strings.ToLower(strings.TrimSpace(typeSpec))
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if m := baseTypePattern.FindString(s); m != "" {
		return m
	}
	return s
}

// IsCompatible reports whether a live column of actualType (with
// nativeTypeName as the catalog's underlying type, possibly empty) can serve
// a declared expectedBaseType without conversion. It is conservative: only
// pairs in the critical-mismatch set are incompatible.
func IsCompatible(actualType, nativeTypeName, expectedBaseType string) bool {
	actual := Canonical(actualType)
	// The catalog reports "USER-DEFINED" or "ARRAY" for some columns; the
	// native type name is the meaningful one there.
	if (actual == "" || actual == "user-defined" || actual == "array") && nativeTypeName != "" {
		actual = Canonical(nativeTypeName)
	}
	expected := Canonical(BaseType(expectedBaseType))

	if actual == expected {
		return true
	}
	return !criticalMismatches[[2]string{actual, expected}]
}

// NeedsConversion is the inverse view used by the diff analyzer: true only
// for critical mismatches.
func NeedsConversion(actualType, nativeTypeName, expectedBaseType string) bool {
	return !IsCompatible(actualType, nativeTypeName, expectedBaseType)
}

// Textual reports whether a canonical type stores free-form text, i.e. is a
// candidate source for validated text-to-typed conversions.
func Textual(canonicalType string) bool {
	switch canonicalType {
	case "text", "varchar", "character":
		return true
	}
	return false
}
