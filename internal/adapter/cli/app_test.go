package cli

import (
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMySQLDSN_EnablesParseTime(t *testing.T) {
	for _, in := range []string{
		"root:root@tcp(localhost:3306)/shop",
		"root:root@tcp(localhost:3306)/shop?parseTime=false",
	} {
		out, err := mysqlDSN(in)
		require.NoError(t, err)

		cfg, err := mysql.ParseDSN(out)
		require.NoError(t, err)
		assert.True(t, cfg.ParseTime, in)
		assert.Equal(t, "shop", cfg.DBName)
		assert.Equal(t, "localhost:3306", cfg.Addr)
	}
}

func TestMySQLDSN_Invalid(t *testing.T) {
	_, err := mysqlDSN("root:root@tcp(localhost:3306)shop")
	assert.Error(t, err)
}
