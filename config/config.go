package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Mode is dev or prod (SOCIAL_APP_MODE).
	Mode     string `yaml:"mode" validate:"oneof=dev prod"`
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	HTTPAddress string `yaml:"http_address" validate:"required"`
	// GRPCAddress is optional; the gRPC server is not started when empty.
	GRPCAddress string `yaml:"grpc_address"`

	// Storage selects the repository backend: json (in-memory, loaded from
	// DataFile) or neo4j.
	Storage  string      `yaml:"storage" validate:"oneof=json neo4j"`
	DataFile string      `yaml:"data_file" validate:"required_if=Storage json"`
	Neo4j    Neo4jConfig `yaml:"neo4j"`

	ConnectionsMaxPageSize     int `yaml:"connections_max_page_size" validate:"gt=0"`
	RecommendationsMaxPageSize int `yaml:"recommendations_max_page_size" validate:"gt=0"`
	BatchQueueSize             int `yaml:"batch_queue_size" validate:"gt=0"`

	Auth AuthConfig `yaml:"auth"`

	// OTelEndpoint enables tracing when set.
	OTelEndpoint string `yaml:"otel_endpoint"`
}

type Neo4jConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Secret  string `yaml:"secret"`
}

func Default() Config {
	return Config{
		Mode:                       "dev",
		LogLevel:                   "info",
		HTTPAddress:                ":8080",
		GRPCAddress:                ":50051",
		Storage:                    "json",
		DataFile:                   "data.json",
		ConnectionsMaxPageSize:     50,
		RecommendationsMaxPageSize: 50,
		BatchQueueSize:             64,
		Auth:                       AuthConfig{Secret: "tajna_lozinka"},
	}
}

// Load starts from Default, applies the YAML file at path (or $SOCIAL_CONFIG)
// when there is one, then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("SOCIAL_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read the config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse the config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Mode, strings.ToLower(os.Getenv("SOCIAL_APP_MODE")))
	setString(&c.LogLevel, strings.ToLower(os.Getenv("SOCIAL_LOG_LEVEL")))
	setString(&c.HTTPAddress, os.Getenv("SOCIAL_HTTP_ADDRESS"))
	setString(&c.GRPCAddress, os.Getenv("SOCIAL_GRPC_ADDRESS"))
	setString(&c.Storage, strings.ToLower(os.Getenv("SOCIAL_STORAGE")))
	setString(&c.DataFile, os.Getenv("SOCIAL_DATA_FILE"))

	// Podrži oba seta imena env varijabli
	setString(&c.Neo4j.URI, firstNonEmpty(os.Getenv("NEO4J_DB"), os.Getenv("NEO4J_URI")))
	setString(&c.Neo4j.Username, firstNonEmpty(os.Getenv("NEO4J_USERNAME"), os.Getenv("NEO4J_USER")))
	setString(&c.Neo4j.Password, os.Getenv("NEO4J_PASS"))

	setString(&c.Auth.Secret, os.Getenv("JWT_SECRET"))
	if v := os.Getenv("SOCIAL_AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SOCIAL_AUTH_ENABLED: %w", err)
		}
		c.Auth.Enabled = enabled
	}

	setString(&c.OTelEndpoint, os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	return nil
}

var validate = validator.New()

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Storage == "neo4j" && c.Neo4j.URI == "" {
		return errors.New("invalid config: neo4j storage needs NEO4J_URI")
	}
	if c.Auth.Enabled && c.Auth.Secret == "" {
		return errors.New("invalid config: auth is enabled without a JWT secret")
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
