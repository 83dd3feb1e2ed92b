package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config captures the runtime configuration for the application.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Backup   BackupConfig   `yaml:"backup"`
	AI       AIConfig       `yaml:"ai"`
}

// ServerConfig configures the HTTP server runtime behavior.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DatabaseConfig contains the database connection settings. Driver is
// "sqlite" or "postgres"; when blank it is inferred from URL.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	URL             string        `yaml:"url"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	UseMock         bool          `yaml:"use_mock"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// BackupConfig selects where snapshot files are written.
type BackupConfig struct {
	Driver string   `yaml:"driver"`
	Dir    string   `yaml:"dir"`
	Prefix string   `yaml:"prefix"`
	S3     S3Config `yaml:"s3"`
}

// S3Config points the s3 backup driver at a bucket. Blank keys fall back to
// the default AWS credential chain.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
}

type AIConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultAddr         = ":8080"
	defaultDatabaseURL  = "almmr.db"
	defaultBackupDriver = "fs"
	defaultBackupDir    = "backups"
	defaultBackupPrefix = "almmr_backup_"
)

// Load inspects the environment and builds a Config value.
func Load() (Config, error) {
	return load(viper.New())
}

// LoadFile reads a YAML configuration file. Environment variables still take
// precedence over values from the file.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config file %s not found", path)
		}
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return load(v)
}

func load(v *viper.Viper) (Config, error) {
	cfg := Config{}

	cfg.Server = ServerConfig{
		Addr: firstNonEmpty(
			os.Getenv("SERVER_ADDR"),
			os.Getenv("ADDR"),
			v.GetString("server.addr"),
			defaultAddr,
		),
	}

	cfg.Database = DatabaseConfig{
		Driver: strings.ToLower(firstNonEmpty(
			os.Getenv("DATABASE_DRIVER"),
			v.GetString("database.driver"),
		)),
		URL: firstNonEmpty(
			os.Getenv("DATABASE_URL"),
			os.Getenv("DB_URL"),
			v.GetString("database.url"),
			defaultDatabaseURL,
		),
		MaxIdleConns:    parseIntWithDefault(firstNonEmpty(os.Getenv("DATABASE_MAX_IDLE_CONNS"), v.GetString("database.max_idle_conns")), 0),
		MaxOpenConns:    parseIntWithDefault(firstNonEmpty(os.Getenv("DATABASE_MAX_OPEN_CONNS"), v.GetString("database.max_open_conns")), 0),
		ConnMaxLifetime: parseDurationWithDefault(firstNonEmpty(os.Getenv("DATABASE_CONN_MAX_LIFETIME"), v.GetString("database.conn_max_lifetime")), 0),
		ConnMaxIdleTime: parseDurationWithDefault(firstNonEmpty(os.Getenv("DATABASE_CONN_MAX_IDLE_TIME"), v.GetString("database.conn_max_idle_time")), 0),
		UseMock:         parseBoolWithDefault(firstNonEmpty(os.Getenv("DATABASE_USE_MOCK"), v.GetString("database.use_mock")), false),
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = inferDriver(cfg.Database.URL)
	}

	cfg.Logging = LoggingConfig{
		Level:  strings.ToLower(firstNonEmpty(os.Getenv("LOG_LEVEL"), v.GetString("logging.level"), "info")),
		Format: strings.ToLower(firstNonEmpty(os.Getenv("LOG_FORMAT"), v.GetString("logging.format"), "text")),
	}

	cfg.Backup = BackupConfig{
		Driver: strings.ToLower(firstNonEmpty(os.Getenv("BACKUP_DRIVER"), v.GetString("backup.driver"), defaultBackupDriver)),
		Dir:    firstNonEmpty(os.Getenv("BACKUP_DIR"), v.GetString("backup.dir"), defaultBackupDir),
		Prefix: firstNonEmpty(os.Getenv("BACKUP_PREFIX"), v.GetString("backup.prefix"), defaultBackupPrefix),
		S3: S3Config{
			Bucket:    firstNonEmpty(os.Getenv("BACKUP_S3_BUCKET"), v.GetString("backup.s3.bucket")),
			Region:    firstNonEmpty(os.Getenv("BACKUP_S3_REGION"), v.GetString("backup.s3.region")),
			Endpoint:  firstNonEmpty(os.Getenv("BACKUP_S3_ENDPOINT"), v.GetString("backup.s3.endpoint")),
			PathStyle: parseBoolWithDefault(firstNonEmpty(os.Getenv("BACKUP_S3_PATH_STYLE"), v.GetString("backup.s3.path_style")), false),

			AccessKeyID:     firstNonEmpty(os.Getenv("BACKUP_S3_ACCESS_KEY_ID"), v.GetString("backup.s3.access_key_id")),
			SecretAccessKey: firstNonEmpty(os.Getenv("BACKUP_S3_SECRET_ACCESS_KEY"), v.GetString("backup.s3.secret_access_key")),
		},
	}

	cfg.AI = AIConfig{
		APIKey:  firstNonEmpty(os.Getenv("OPENAI_API_KEY"), v.GetString("ai.api_key")),
		Model:   firstNonEmpty(os.Getenv("OPENAI_MODEL"), v.GetString("ai.model")),
		BaseURL: firstNonEmpty(os.Getenv("OPENAI_BASE_URL"), v.GetString("ai.base_url")),
		Timeout: parseDurationWithDefault(firstNonEmpty(os.Getenv("OPENAI_TIMEOUT"), v.GetString("ai.timeout")), 0),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate reports configuration combinations that cannot work.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server address must not be empty")
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Backup.Driver {
	case "fs", "memory":
	case "s3":
		if strings.TrimSpace(c.Backup.S3.Bucket) == "" {
			return fmt.Errorf("backup driver s3 requires BACKUP_S3_BUCKET")
		}
	default:
		return fmt.Errorf("unsupported backup driver %q", c.Backup.Driver)
	}
	return nil
}

// Defaults returns the built-in configuration without consulting the environment.
func Defaults() Config {
	return Config{
		Server:   ServerConfig{Addr: defaultAddr},
		Database: DatabaseConfig{Driver: DriverSQLite, URL: defaultDatabaseURL},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Backup:   BackupConfig{Driver: defaultBackupDriver, Dir: defaultBackupDir, Prefix: defaultBackupPrefix},
	}
}

// WriteDefault writes the built-in configuration as YAML to path. It refuses
// to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	body, err := yaml.Marshal(Defaults())
	if err != nil {
		return fmt.Errorf("encode default config: %w", err)
	}
	header := []byte("# almmr configuration. Environment variables override these values.\n")
	return os.WriteFile(path, append(header, body...), 0o644)
}

func inferDriver(url string) string {
	lower := strings.ToLower(strings.TrimSpace(url))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") || strings.Contains(lower, "host=") {
		return DriverPostgres
	}
	return DriverSQLite
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func parseIntWithDefault(value string, def int) int {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func parseDurationWithDefault(value string, def time.Duration) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}

func parseBoolWithDefault(value string, def bool) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return def
	}
	return parsed
}
