package modelstore

type Config struct {
	CoefficientsPath string `envconfig:"PQM_MODEL_COEFFICIENTS_PATH" default:"models/linear_model.json"`
	// ArtifactPath is optional. When set, trained models are also snapshotted there.
	ArtifactPath string `envconfig:"PQM_MODEL_ARTIFACT_PATH" default:"models/model.bin"`
}
