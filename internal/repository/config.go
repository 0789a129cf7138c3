package repository

type Config struct {
	// Store selects the backend: bolt, postgres or sqlite.
	Store string `envconfig:"PQM_STORE" default:"bolt"`
	// DSN is the connection string for postgres or the file for sqlite.
	DSN string `envconfig:"PQM_DB_DSN"`
}
