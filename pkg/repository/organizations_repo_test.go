package repository

import (
	"os"
	"regexp"
	"testing"
)

var createTableRe = regexp.MustCompile(`(?s)CREATE TABLE (\w+) \((.*?)\);`)

// orgFKTables parses the schema for every table with a NOT NULL foreign key
// to organizations. These are exactly the rows that must be purged before
// the organization row itself can be deleted.
func orgFKTables(t *testing.T) map[string]bool {
	t.Helper()
	schema, err := os.ReadFile("../../migrations/001_init.sql")
	if err != nil {
		t.Fatalf("failed to read schema: %v", err)
	}

	fkRe := regexp.MustCompile(`organization_id\s+UUID NOT NULL REFERENCES organizations\(id\)`)
	tables := make(map[string]bool)
	for _, m := range createTableRe.FindAllStringSubmatch(string(schema), -1) {
		name, body := m[1], m[2]
		if fkRe.MatchString(body) {
			tables[name] = true
		}
	}
	if len(tables) == 0 {
		t.Fatal("no organization foreign keys found in schema, parser broken?")
	}
	return tables
}

// Every table with an organization FK must be in the purge list, or
// DeleteOrganization hits a foreign-key violation and teardown never
// converges. The reverse also holds: the list must not name tables the
// schema does not have.
func TestDependentTablesMatchSchema(t *testing.T) {
	fkTables := orgFKTables(t)

	listed := make(map[string]bool, len(dependentTables))
	for _, table := range dependentTables {
		if listed[table] {
			t.Errorf("table %q listed twice in dependentTables", table)
		}
		listed[table] = true
	}

	for table := range fkTables {
		if !listed[table] {
			t.Errorf("table %q has a NOT NULL FK to organizations but is missing from dependentTables", table)
		}
	}
	for table := range listed {
		if !fkTables[table] {
			t.Errorf("dependentTables names %q, which has no organization FK in the schema", table)
		}
	}
}

// Tables referencing another tenant-owned table must be purged before the
// table they reference.
func TestDependentTablesOrderRespectsForeignKeys(t *testing.T) {
	schema, err := os.ReadFile("../../migrations/001_init.sql")
	if err != nil {
		t.Fatalf("failed to read schema: %v", err)
	}

	position := make(map[string]int, len(dependentTables))
	for i, table := range dependentTables {
		position[table] = i
	}

	refRe := regexp.MustCompile(`REFERENCES (\w+)\(`)
	for _, m := range createTableRe.FindAllStringSubmatch(string(schema), -1) {
		name, body := m[1], m[2]
		from, ok := position[name]
		if !ok {
			continue
		}
		for _, ref := range refRe.FindAllStringSubmatch(body, -1) {
			to, ok := position[ref[1]]
			if !ok {
				continue
			}
			if from >= to {
				t.Errorf("table %q references %q but is purged at position %d, after it (%d)", name, ref[1], from, to)
			}
		}
	}
}
