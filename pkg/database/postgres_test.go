package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-timetable-viewer/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "viewer",
		Password: "secret",
		Name:     "timetable_viewer",
		SSLMode:  "disable",
	})
	assert.Equal(t, "host=db port=5433 user=viewer password=secret dbname=timetable_viewer sslmode=disable", dsn)
}
