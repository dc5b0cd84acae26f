package model

import "strings"

// FriendlyType is the UI-facing semantic type of a column.
type FriendlyType string

const (
	FriendlyNumber   FriendlyType = "Number"
	FriendlyCurrency FriendlyType = "Currency"
	FriendlyText     FriendlyType = "Text"
	FriendlyLongText FriendlyType = "Long Text"
	FriendlyDateTime FriendlyType = "Date & Time"
	FriendlyDate     FriendlyType = "Date"
	FriendlyTime     FriendlyType = "Time"
	FriendlyYesNo    FriendlyType = "Yes/No"
	FriendlyJSON     FriendlyType = "JSON"
)

// ColumnDescriptor describes one column as reported by the catalog.
type ColumnDescriptor struct {
	Name         string       `json:"name"`
	DataType     string       `json:"dataType"`
	FriendlyType FriendlyType `json:"friendlyType"`
	Nullable     bool         `json:"nullable"`
	IsPrimaryKey bool         `json:"isPrimaryKey"`
}

// TableDescriptor describes a table and its columns. RowCount is exact when
// RowCountExact is set, otherwise it is a catalog estimate.
type TableDescriptor struct {
	Name          string             `json:"name"`
	Schema        string             `json:"schema"`
	RowCount      int64              `json:"rowCount"`
	RowCountExact bool               `json:"rowCountExact"`
	Columns       []ColumnDescriptor `json:"columns"`
}

// Column looks a column up by name, ignoring case.
func (t *TableDescriptor) Column(name string) (*ColumnDescriptor, bool) {
	for i := range t.Columns {
		if strings.EqualFold(t.Columns[i].Name, name) {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// FindTable looks a table up by name, ignoring case.
func FindTable(tables []TableDescriptor, name string) (*TableDescriptor, bool) {
	for i := range tables {
		if strings.EqualFold(tables[i].Name, name) {
			return &tables[i], true
		}
	}
	return nil, false
}
