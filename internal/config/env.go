package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file in the working directory is loaded first when present, so
// credentials can live there locally and in real env vars when deployed.
// Keys map to DFR_-prefixed variables: "source.bucket" is DFR_SOURCE_BUCKET.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnv(cfg, newEnvViper())

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newEnvViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("DFR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// applyEnv copies every key set in v onto cfg.
func applyEnv(cfg *Config, v *viper.Viper) {
	targets := map[string]*string{
		"source.backend":          &cfg.Source.Backend,
		"source.bucket":           &cfg.Source.Bucket,
		"source.prefix":           &cfg.Source.Prefix,
		"state.backend":           &cfg.State.Backend,
		"state.bucket":            &cfg.State.Bucket,
		"state.template_object":   &cfg.State.TemplateObject,
		"submission.presenter_id": &cfg.Submission.PresenterID,
		"submission.password":     &cfg.Submission.Password,
		"submission.submitter_id": &cfg.Submission.SubmitterID,
		"lock.redis_addr":         &cfg.Lock.RedisAddr,
		"lock.postgres_dsn":       &cfg.Lock.PostgresDSN,
		"gcs.credentials_file":    &cfg.GCS.CredentialsFile,
		"s3.region":               &cfg.S3.Region,
		"s3.profile":              &cfg.S3.Profile,
		"s3.access_key_id":        &cfg.S3.AccessKeyID,
		"s3.secret_access_key":    &cfg.S3.SecretAccessKey,
	}

	for key, dst := range targets {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	if v.IsSet("server.port") {
		cfg.Server.Port = v.GetInt("server.port")
	}
}
