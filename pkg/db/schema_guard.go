package db

import (
	"database/sql"
	"fmt"
)

// ColumnType represents expected column schema
type ColumnType struct {
	Name     string
	DataType string
	Nullable bool
}

// TableSchema represents expected table structure
type TableSchema struct {
	Name    string
	Columns []ColumnType
}

// SchemaGuard validates database schema matches expectations
type SchemaGuard struct {
	db *sql.DB
}

// NewSchemaGuard creates a new schema guard
func NewSchemaGuard(db *sql.DB) *SchemaGuard {
	return &SchemaGuard{db: db}
}

// ValidateTable validates a table's schema
func (sg *SchemaGuard) ValidateTable(schema TableSchema) error {
	query := `
		SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE()
		AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`
	rows, err := sg.db.Query(query, schema.Name)
	if err != nil {
		return fmt.Errorf("failed to query schema for table %s: %w", schema.Name, err)
	}
	defer rows.Close()

	actual := make(map[string]ColumnType)
	for rows.Next() {
		var name, dataType, nullable string
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return fmt.Errorf("failed to scan column info: %w", err)
		}
		actual[name] = ColumnType{
			Name:     name,
			DataType: dataType,
			Nullable: nullable == "YES",
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate columns: %w", err)
	}

	if len(actual) == 0 {
		return fmt.Errorf("table %s does not exist", schema.Name)
	}

	for _, expected := range schema.Columns {
		col, ok := actual[expected.Name]
		if !ok {
			return fmt.Errorf("table %s is missing column %s", schema.Name, expected.Name)
		}
		if col.DataType != expected.DataType {
			return fmt.Errorf("table %s column %s has type %s, expected %s",
				schema.Name, expected.Name, col.DataType, expected.DataType)
		}
	}
	return nil
}

// ValidateTables validates multiple tables, stopping at the first mismatch
func (sg *SchemaGuard) ValidateTables(schemas []TableSchema) error {
	for _, schema := range schemas {
		if err := sg.ValidateTable(schema); err != nil {
			return err
		}
	}
	return nil
}
