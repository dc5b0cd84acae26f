package drivers

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-gateway/internal/model"
)

func TestDialectFor(t *testing.T) {
	d, err := DialectFor(model.DialectFamilyMySQL)
	require.NoError(t, err)
	assert.Equal(t, model.DialectFamilyMySQL, d.Name())

	d, err = DialectFor(model.DialectFamilyMSSQL)
	require.NoError(t, err)
	assert.Equal(t, model.DialectFamilyMSSQL, d.Name())

	_, err = DialectFor("oracle")
	assert.Error(t, err)
}

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		dialect Dialect
		in      string
		want    string
	}{
		{MySQLDialect{}, "users", "`users`"},
		{MySQLDialect{}, "odd`name", "`odd``name`"},
		{SQLServerDialect{}, "users", "[users]"},
		{SQLServerDialect{}, "odd]name", "[odd]]name]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.dialect.QuoteIdentifier(tt.in))
	}

	assert.Equal(t, "[dbo].[users]", SQLServerDialect{}.QualifiedTable("dbo", "users"))
	assert.Equal(t, "[users]", SQLServerDialect{}.QualifiedTable("", "users"))
	assert.Equal(t, "`shop`.`users`", MySQLDialect{}.QualifiedTable("shop", "users"))
}

func TestPaginationClause(t *testing.T) {
	clause, params := MySQLDialect{}.PaginationClause(2, 10)
	assert.Equal(t, "LIMIT ? OFFSET ?", clause)
	assert.Equal(t, []interface{}{10, 10}, params)

	clause, params = SQLServerDialect{}.PaginationClause(3, 25)
	assert.Equal(t, "OFFSET 50 ROWS FETCH NEXT 25 ROWS ONLY", clause)
	assert.Empty(t, params)

	assert.False(t, MySQLDialect{}.RequiresOrderByForPagination())
	assert.True(t, SQLServerDialect{}.RequiresOrderByForPagination())
}

func TestSQLServerRewriteParams(t *testing.T) {
	t.Run("numbers placeholders in order", func(t *testing.T) {
		query, args, err := SQLServerDialect{}.RewriteParams(
			"SELECT [id] FROM [users] WHERE [name] LIKE ? AND [age] > ?", []interface{}{"%Jo%", "30"})
		require.NoError(t, err)
		assert.Equal(t, "SELECT [id] FROM [users] WHERE [name] LIKE @p1 AND [age] > @p2", query)
		assert.Equal(t, []interface{}{sql.Named("p1", "%Jo%"), sql.Named("p2", "30")}, args)
	})

	t.Run("ignores question marks in quoted text", func(t *testing.T) {
		query, args, err := SQLServerDialect{}.RewriteParams(
			"SELECT [what?] FROM [t] WHERE [a] = 'why?' AND [b] = ?", []interface{}{1})
		require.NoError(t, err)
		assert.Equal(t, "SELECT [what?] FROM [t] WHERE [a] = 'why?' AND [b] = @p1", query)
		assert.Len(t, args, 1)
	})

	t.Run("escaped quote characters stay quoted", func(t *testing.T) {
		query, args, err := SQLServerDialect{}.RewriteParams(
			"SELECT [a]]?] FROM [t] WHERE [x] = ? AND [y] = 'it''s?' AND [z] = \"q\"\"?\"", []interface{}{"v"})
		require.NoError(t, err)
		assert.Equal(t, "SELECT [a]]?] FROM [t] WHERE [x] = @p1 AND [y] = 'it''s?' AND [z] = \"q\"\"?\"", query)
		assert.Len(t, args, 1)
	})

	t.Run("quoted identifier round trip", func(t *testing.T) {
		d := SQLServerDialect{}
		query, _, err := d.RewriteParams("SELECT "+d.QuoteIdentifier("a]?")+" FROM [t] WHERE [x] = ?", []interface{}{1})
		require.NoError(t, err)
		assert.Equal(t, "SELECT [a]]?] FROM [t] WHERE [x] = @p1", query)
	})

	t.Run("no placeholders", func(t *testing.T) {
		query, args, err := SQLServerDialect{}.RewriteParams("SELECT 1", nil)
		require.NoError(t, err)
		assert.Equal(t, "SELECT 1", query)
		assert.Empty(t, args)
	})

	t.Run("count mismatch", func(t *testing.T) {
		_, _, err := SQLServerDialect{}.RewriteParams("SELECT ? , ?", []interface{}{1})
		assert.Error(t, err)
	})
}

func TestMySQLRewriteParamsPassesThrough(t *testing.T) {
	params := []interface{}{"a", 2}
	query, args, err := MySQLDialect{}.RewriteParams("SELECT ? , ?", params)
	require.NoError(t, err)
	assert.Equal(t, "SELECT ? , ?", query)
	assert.Equal(t, params, args)
}
