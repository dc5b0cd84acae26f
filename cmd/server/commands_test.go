package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-gateway/internal/config"
	"query-gateway/internal/model"
	"query-gateway/internal/security"
)

func TestParseFilterFlag(t *testing.T) {
	tests := []struct {
		raw     string
		column  string
		op      model.FilterOperator
		value   string
		wantErr bool
	}{
		{raw: "name:contains:ann", column: "name", op: model.FilterContains, value: "ann"},
		{raw: "status:active", column: "status", op: model.FilterEquals, value: "active"},
		{raw: "created:greaterThan:2024-01-01T10:00", column: "created", op: model.FilterGreaterThan, value: "2024-01-01T10:00"},
		{raw: "name::x", wantErr: true},
		{raw: "novalue", wantErr: true},
		{raw: ":equals:x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			column, op, value, err := parseFilterFlag(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.column, column)
			assert.Equal(t, tt.op, op)
			assert.Equal(t, tt.value, value)
		})
	}
}

func TestQueryFlagsRequest(t *testing.T) {
	f := queryFlags{
		dataSourceID:  "ds-1",
		table:         "users",
		columns:       []string{"id", "name"},
		filters:       []string{"name:startsWith:A", "age:greaterThan:30", "name:endsWith:z"},
		sortColumn:    "id",
		sortDirection: "desc",
		page:          2,
		pageSize:      20,
	}

	req, err := f.request()
	require.NoError(t, err)

	assert.Equal(t, "users", req.TableName)
	assert.Equal(t, []string{"id", "name"}, req.Columns)
	assert.Equal(t, model.SortDesc, req.SortDirection)
	assert.Equal(t, 2, req.Page)
	require.Len(t, req.Filters, 2)
	assert.Equal(t, model.Filter{Column: "name", Value: "z", Operator: model.FilterEndsWith}, req.Filters[0])
	assert.Equal(t, "age", req.Filters[1].Column)
}

func TestQueryFlagsRequestBadFilter(t *testing.T) {
	f := queryFlags{dataSourceID: "ds-1", table: "users", columns: []string{"id"}, filters: []string{"broken"}}

	_, err := f.request()
	assert.Error(t, err)
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "tables", "query", "token", "version"})
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, version+"\n", out.String())
}

func TestIssueToken(t *testing.T) {
	sec := config.SecurityConfig{JWTSecret: "cli-secret", JWTExpiration: time.Hour}

	var out bytes.Buffer
	require.NoError(t, issueToken(&out, sec, "u-3", ""))

	claims, err := security.NewJWTManager("cli-secret", time.Hour).ValidateToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "u-3", claims.UserID)
	assert.Equal(t, "u-3", claims.Username)

	_, err = security.NewJWTManager("other-secret", time.Hour).ValidateToken(strings.TrimSpace(out.String()))
	assert.Error(t, err)

	assert.Error(t, issueToken(&out, config.SecurityConfig{}, "u-3", "ada"))
}
