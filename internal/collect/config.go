package collect

import (
	"time"
)

type Config struct {
	RequestTimeout time.Duration `envconfig:"PQM_COLLECT_REQUEST_TIMEOUT" default:"60s"`
	MaxBatchLen    int           `envconfig:"PQM_COLLECT_MAX_BATCH_LEN" default:"1000"`
	ListDefault    int           `envconfig:"PQM_LIST_LIMIT_DEFAULT" default:"100"`
	ListMax        int           `envconfig:"PQM_LIST_LIMIT_MAX" default:"1000"`
}
