package config

// StorageConfig configures the S3-compatible storage endpoint exposed by the
// backend (https://<project>.supabase.co/storage/v1/s3).
type StorageConfig struct {
	Endpoint        string `env:"ENDPOINT"`
	Region          string `env:"REGION"            envDefault:"us-east-1"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
}

// IsConfigured reports whether file storage can be used.
func (s *StorageConfig) IsConfigured() bool {
	return s.Endpoint != "" && s.AccessKeyID != "" && s.SecretAccessKey != ""
}
