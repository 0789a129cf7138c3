package predict

import "time"

type Config struct {
	RequestTimeout time.Duration `envconfig:"PQM_PREDICT_REQUEST_TIMEOUT" default:"30s"`
}
