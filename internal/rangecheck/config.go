package rangecheck

type Config struct {
	Feature1Min float64 `envconfig:"PQM_INPUT_TEMP_MIN" default:"750"`
	Feature1Max float64 `envconfig:"PQM_INPUT_TEMP_MAX" default:"1000"`
	Feature2Min float64 `envconfig:"PQM_INPUT_TIME_MIN" default:"8"`
	Feature2Max float64 `envconfig:"PQM_INPUT_TIME_MAX" default:"24"`
	// RangesFile replaces the env ranges with a TOML list of [[range]] tables.
	RangesFile string `envconfig:"PQM_INPUT_RANGES_FILE"`
}

// Ranges returns the env configured envelope in feature order.
func (c *Config) Ranges() []Range {
	return []Range{
		{Name: "feature1", Label: "calcination temperature", Unit: "°C", Min: c.Feature1Min, Max: c.Feature1Max},
		{Name: "feature2", Label: "calcination time", Unit: "h", Min: c.Feature2Min, Max: c.Feature2Max},
	}
}
