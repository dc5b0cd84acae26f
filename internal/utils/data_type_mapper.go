package utils

import (
	"strings"

	"query-gateway/internal/model"
)

// TypeMapping pairs a native type fragment with the friendly type it implies.
type TypeMapping struct {
	Fragment string
	Friendly model.FriendlyType
}

// friendlyTypeTable is matched top to bottom; the first fragment contained in
// the lower-cased native type wins.
var friendlyTypeTable = []TypeMapping{
	{"json", model.FriendlyJSON},

	// spatial types would otherwise match "int" via "point"
	{"point", model.FriendlyText},
	{"geometry", model.FriendlyText},
	{"geography", model.FriendlyText},
	{"linestring", model.FriendlyText},
	{"polygon", model.FriendlyText},

	{"tinyint", model.FriendlyYesNo},
	{"bool", model.FriendlyYesNo},
	{"bit", model.FriendlyYesNo},

	{"decimal", model.FriendlyCurrency},
	{"numeric", model.FriendlyCurrency},
	{"money", model.FriendlyCurrency},

	{"int", model.FriendlyNumber},
	{"float", model.FriendlyNumber},
	{"double", model.FriendlyNumber},
	{"real", model.FriendlyNumber},
	{"year", model.FriendlyNumber},

	{"datetime", model.FriendlyDateTime},
	{"timestamp", model.FriendlyDateTime},
	{"date", model.FriendlyDate},
	{"time", model.FriendlyTime},

	{"text", model.FriendlyLongText},

	{"char", model.FriendlyText},
	{"enum", model.FriendlyText},
	{"set", model.FriendlyText},
	{"uniqueidentifier", model.FriendlyText},
	{"xml", model.FriendlyText},
}

// DataTypeMapper maps native column types to friendly types.
type DataTypeMapper struct {
	table []TypeMapping
}

// NewDataTypeMapper creates a new DataTypeMapper instance
func NewDataTypeMapper() *DataTypeMapper {
	return &DataTypeMapper{table: friendlyTypeTable}
}

// MapToFriendlyType never fails: anything unmatched is Text.
func (dtm *DataTypeMapper) MapToFriendlyType(nativeType string) model.FriendlyType {
	normalized := strings.ToLower(strings.TrimSpace(nativeType))
	if normalized == "" {
		return model.FriendlyText
	}

	for _, m := range dtm.table {
		if strings.Contains(normalized, m.Fragment) {
			return m.Friendly
		}
	}
	return model.FriendlyText
}

// Mappings returns a copy of the lookup table in match order.
func (dtm *DataTypeMapper) Mappings() []TypeMapping {
	out := make([]TypeMapping, len(dtm.table))
	copy(out, dtm.table)
	return out
}
