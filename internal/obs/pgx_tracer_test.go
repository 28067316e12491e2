package obs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDescribeSQL(t *testing.T) {
	op, table := describeSQL(`SELECT id, name FROM products WHERE id = ANY($1::uuid[])`)
	require.Equal(t, "SELECT", op)
	require.Equal(t, "products", table)

	op, table = describeSQL("insert into price_tiers (product_id) values ($1)")
	require.Equal(t, "INSERT", op)
	require.Equal(t, "price_tiers", table)

	op, table = describeSQL("  ")
	require.Equal(t, "UNKNOWN", op)
	require.Empty(t, table)
}

func TestTruncateSQL(t *testing.T) {
	long := "SELECT " + strings.Repeat("x", 400)
	got := truncateSQL(long)
	require.Len(t, got, maxStatementLen+3)
	require.True(t, strings.HasSuffix(got, "..."))
	require.Equal(t, "SELECT 1", truncateSQL("  SELECT 1 "))
}
