package clickhouse

import (
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BarkinBalci/feature-flag-events/internal/config"
)

func TestOptions(t *testing.T) {
	opts := options(&config.ClickHouse{
		Host:            "localhost",
		Port:            "9000",
		Database:        "events",
		User:            "writer",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 3600,
	})

	assert.Equal(t, []string{"localhost:9000"}, opts.Addr)
	assert.Equal(t, "events", opts.Auth.Database)
	assert.Equal(t, "writer", opts.Auth.Username)
	assert.Nil(t, opts.TLS)
	assert.Equal(t, time.Hour, opts.ConnMaxLifetime)
	assert.Equal(t, 1, opts.Settings["insert_deduplicate"])
	assert.Equal(t, maxInsertBlockSize, opts.Settings["max_insert_block_size"])
	require.NotNil(t, opts.Compression)
	assert.Equal(t, clickhouse.CompressionLZ4, opts.Compression.Method)
	assert.Equal(t, uint8(2), opts.BlockBufferSize)
}

func TestOptions_TLS(t *testing.T) {
	opts := options(&config.ClickHouse{Host: "ch.internal", Port: "9440", UseTLS: true})

	require.NotNil(t, opts.TLS)
	assert.Equal(t, []string{"ch.internal:9440"}, opts.Addr)
}
