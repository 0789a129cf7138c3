package database

import "time"

type Config struct {
	FileName    string        `envconfig:"PQM_DB_FILE" default:"pqm.db"`
	OpenTimeout time.Duration `envconfig:"PQM_DB_OPEN_TIMEOUT" default:"1s"`
}
