package monitor

import "time"

type Config struct {
	RequestTimeout time.Duration `envconfig:"PQM_MONITOR_REQUEST_TIMEOUT" default:"30s"`
	ListDefault    int           `envconfig:"PQM_LIST_LIMIT_DEFAULT" default:"100"`
	ListMax        int           `envconfig:"PQM_LIST_LIMIT_MAX" default:"1000"`
	EventsDefault  int           `envconfig:"PQM_EVENTS_LIMIT_DEFAULT" default:"50"`
	EventsMax      int           `envconfig:"PQM_EVENTS_LIMIT_MAX" default:"200"`
}
