package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/campus-connect-api/pkg/config"
)

func TestDSNPrefersURL(t *testing.T) {
	cfg := config.DatabaseConfig{URL: "postgres://u:p@db:5432/campus?sslmode=require", Host: "ignored"}
	assert.Equal(t, cfg.URL, DSN(cfg))
}

func TestDSNFromParts(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "secret", Name: "campus", SSLMode: "disable"}
	assert.Equal(t, "host=localhost port=5432 user=postgres password=secret dbname=campus sslmode=disable", DSN(cfg))
}
