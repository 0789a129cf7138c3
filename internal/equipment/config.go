package equipment

type Config struct {
	// ZScale is the |z| at which the failure probability saturates at 1.
	ZScale       float64 `envconfig:"PQM_FAILURE_Z_SCALE" default:"3"`
	DefaultLimit int     `envconfig:"PQM_TELEMETRY_LIMIT_DEFAULT" default:"200"`
	MaxLimit     int     `envconfig:"PQM_TELEMETRY_LIMIT_MAX" default:"500"`
}
