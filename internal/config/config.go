package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultIndexURL is the public DILA listing of Cour de cassation archives.
const DefaultIndexURL = "https://echanges.dila.gouv.fr/OPENDATA/CASS/"

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		Path string
	}
	Auth struct {
		JWTSecret        string
		AccessTTLMinutes int
		RefreshTTLHours  int
	}
	Ingest struct {
		IndexURL              string
		IndexTimeoutSeconds   int
		ArchiveTimeoutMinutes int
		RequestsPerSecond     float64
		UserAgent             string
	}
	Storage struct {
		Region   string
		Endpoint string
	}
	AWS struct {
		Profile string
	}
}

func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.Auth.AccessTTLMinutes) * time.Minute
}

func (c Config) RefreshTTL() time.Duration {
	return time.Duration(c.Auth.RefreshTTLHours) * time.Hour
}

func (c Config) IndexTimeout() time.Duration {
	return time.Duration(c.Ingest.IndexTimeoutSeconds) * time.Second
}

func (c Config) ArchiveTimeout() time.Duration {
	return time.Duration(c.Ingest.ArchiveTimeoutMinutes) * time.Minute
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv(".env")

	v := viper.New()
	v.SetEnvPrefix("CASSATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("database.path", "data/cassation.db")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.accessttlminutes", 15)
	v.SetDefault("auth.refreshttlhours", 720)
	v.SetDefault("ingest.indexurl", DefaultIndexURL)
	v.SetDefault("ingest.indextimeoutseconds", 30)
	v.SetDefault("ingest.archivetimeoutminutes", 30)
	v.SetDefault("ingest.requestspersecond", 2.0)
	v.SetDefault("ingest.useragent", "cassation-api/1.0")
	v.SetDefault("storage.region", "eu-west-3")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("aws.profile", "")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv exports variables from an optional .env file without overriding
// the ones already set.
func loadDotEnv(path string) {
	_ = godotenv.Load(path)
}
