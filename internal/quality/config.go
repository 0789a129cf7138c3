package quality

type Config struct {
	// TrainLimit caps the samples a training run reads, 0 reads all of them.
	TrainLimit int `envconfig:"PQM_TRAIN_SAMPLE_LIMIT" default:"0"`
}
