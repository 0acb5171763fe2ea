package database

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestPoolStatsCollector_Describe(t *testing.T) {
	var c prometheus.Collector = newPoolStatsCollector(func() *pgxpool.Stat { return nil }, "giftregistry")

	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)

	var names []string
	for d := range ch {
		names = append(names, d.String())
	}
	assert.Len(t, names, 8)
	assert.Contains(t, names[0], "db_pool_acquired_connections")
	assert.Contains(t, names[7], "db_pool_canceled_acquire_count_total")
}
