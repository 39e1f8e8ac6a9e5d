package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/docu-prompt-engine/constants"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	OCR      OCRConfig      `yaml:"ocr"`
	LLM      LLMConfig      `yaml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver              string        `yaml:"driver"` // postgres | sqlite | firestore
	DSN                 string        `yaml:"dsn"`
	FirestoreProject    string        `yaml:"firestore_project"`
	FirestoreCollection string        `yaml:"firestore_collection"`
	MaxConns            int32         `yaml:"max_conns"`
	MinConns            int32         `yaml:"min_conns"`
	MaxConnLifetime     time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime     time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout         time.Duration `yaml:"dial_timeout"`
	StatementTimeout    time.Duration `yaml:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string `yaml:"http_addr"`
	GRPCAddr       string `yaml:"grpc_addr"`
	UploadDir      string `yaml:"upload_dir"`
	InboxDir       string `yaml:"inbox_dir"`
	CORSOrigin     string `yaml:"cors_origin"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
	MaxBatchFiles  int    `yaml:"max_batch_files"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Tesseract   string `yaml:"tesseract"`
	Language    string `yaml:"language"`
	TessdataDir string `yaml:"tessdata_dir"`
	PSM         int    `yaml:"psm"`
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	Provider     string        `yaml:"provider"` // gemini | vertex | openai
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"api_key"`
	BaseURL      string        `yaml:"base_url"`
	Project      string        `yaml:"project"`
	Location     string        `yaml:"location"`
	Temperature  float32       `yaml:"temperature"`
	Timeout      time.Duration `yaml:"timeout"`
	StrictValues bool          `yaml:"strict_values"`
}

// PipelineConfig holds batch and queue tuning.
type PipelineConfig struct {
	BatchWorkers   int           `yaml:"batch_workers"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`
	QueueWorkers   int           `yaml:"queue_workers"`
	QueueSize      int           `yaml:"queue_size"`
	DocumentType   string        `yaml:"document_type"`
}

// DefaultConfig returns the built-in defaults before file and env overrides.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:              "postgres",
			FirestoreCollection: "documents",
			MaxConns:            20,
			MinConns:            5,
			MaxConnLifetime:     30 * time.Minute,
			MaxConnIdleTime:     5 * time.Minute,
			DialTimeout:         3 * time.Second,
		},
		Server: ServerConfig{
			HTTPAddr:       ":5000",
			GRPCAddr:       ":8080",
			UploadDir:      "./uploads",
			CORSOrigin:     "http://localhost:5173",
			MaxUploadBytes: constants.MaxUploadBytes,
			MaxBatchFiles:  constants.MaxBatchFiles,
		},
		OCR: OCRConfig{
			Tesseract: "tesseract",
			Language:  constants.DefaultOCRLanguage,
		},
		LLM: LLMConfig{
			Provider:    "gemini",
			Model:       "gemini-2.0-flash",
			Location:    "us-central1",
			Temperature: 0.0,
			Timeout:     45 * time.Second,
		},
		Pipeline: PipelineConfig{
			BatchWorkers:   1,
			ProcessTimeout: 3 * time.Minute,
			QueueWorkers:   4,
			QueueSize:      256,
			DocumentType:   constants.DefaultDocumentType,
		},
	}
}

// LoadConfig loads configuration from an optional YAML file (CONFIG_FILE)
// and then from environment variables, which take precedence.
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return NewAppError("CONFIG_ERROR", "read config file", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("parse %s", path), err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.FirestoreProject = getEnv("FIRESTORE_PROJECT", c.Database.FirestoreProject)
	c.Database.FirestoreCollection = getEnv("FIRESTORE_COLLECTION", c.Database.FirestoreCollection)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)

	c.Server.HTTPAddr = normalizeAddr(getEnv("PORT", c.Server.HTTPAddr))
	c.Server.GRPCAddr = normalizeAddr(getEnv("GRPC_ADDR", c.Server.GRPCAddr))
	c.Server.UploadDir = getEnv("UPLOAD_DIR", c.Server.UploadDir)
	c.Server.InboxDir = getEnv("INBOX_DIR", c.Server.InboxDir)
	c.Server.CORSOrigin = getEnv("CORS_ORIGIN", c.Server.CORSOrigin)
	c.Server.MaxUploadBytes = getEnvAsInt64("MAX_UPLOAD_BYTES", c.Server.MaxUploadBytes)
	c.Server.MaxBatchFiles = getEnvAsInt("MAX_BATCH_FILES", c.Server.MaxBatchFiles)

	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.OCR.Language = getEnv("OCR_LANG", c.OCR.Language)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.PSM = getEnvAsInt("TESSERACT_PSM", c.OCR.PSM)

	c.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", c.LLM.Provider))
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.APIKey = getEnv("GEMINI_API_KEY", c.LLM.APIKey)
	if c.LLM.Provider == "openai" {
		c.LLM.APIKey = getEnv("OPENAI_API_KEY", c.LLM.APIKey)
	}
	c.LLM.BaseURL = getEnv("LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.Project = getEnv("GOOGLE_CLOUD_PROJECT", c.LLM.Project)
	c.LLM.Location = getEnv("GOOGLE_CLOUD_LOCATION", c.LLM.Location)
	c.LLM.Temperature = getEnvAsFloat32("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.Timeout = getEnvAsDuration("LLM_TIMEOUT", c.LLM.Timeout)
	c.LLM.StrictValues = getEnvAsBool("LLM_STRICT_VALUES", c.LLM.StrictValues)

	c.Pipeline.BatchWorkers = getEnvAsInt("BATCH_WORKERS", c.Pipeline.BatchWorkers)
	c.Pipeline.ProcessTimeout = getEnvAsDuration("PROCESS_TIMEOUT", c.Pipeline.ProcessTimeout)
	c.Pipeline.QueueWorkers = getEnvAsInt("QUEUE_WORKERS", c.Pipeline.QueueWorkers)
	c.Pipeline.QueueSize = getEnvAsInt("QUEUE_SIZE", c.Pipeline.QueueSize)
	c.Pipeline.DocumentType = getEnv("DOCUMENT_TYPE", c.Pipeline.DocumentType)
}

func normalizeAddr(addr string) string {
	if addr != "" && !strings.Contains(addr, ":") {
		return ":" + addr
	}
	return addr
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	c.validateDatabase(v)
	c.validateLLM(v)
	v.Field("PORT", c.Server.HTTPAddr, Required)
	v.Field("GRPC_ADDR", c.Server.GRPCAddr, Required)
	v.Field("UPLOAD_DIR", c.Server.UploadDir, Required)
	v.Field("MAX_BATCH_FILES", c.Server.MaxBatchFiles, Positive)
	v.Field("MAX_UPLOAD_BYTES", c.Server.MaxUploadBytes, Positive)
	return configError(v)
}

// ValidateDatabase checks only the storage settings, for tools that never call a model.
func (c *Config) ValidateDatabase() error {
	v := NewValidator()
	c.validateDatabase(v)
	return configError(v)
}

// ValidateLLM checks only the model provider settings.
func (c *Config) ValidateLLM() error {
	v := NewValidator()
	c.validateLLM(v)
	return configError(v)
}

func (c *Config) validateDatabase(v *Validator) {
	v.Field("DB_DRIVER", c.Database.Driver, OneOf("postgres", "sqlite", "firestore"))
	switch c.Database.Driver {
	case "postgres", "sqlite":
		v.Field("DB_URL", c.Database.DSN, Required)
	case "firestore":
		v.Field("FIRESTORE_PROJECT", c.Database.FirestoreProject, Required)
	}
}

func (c *Config) validateLLM(v *Validator) {
	v.Field("LLM_PROVIDER", c.LLM.Provider, OneOf("gemini", "vertex", "openai"))
	switch c.LLM.Provider {
	case "gemini", "openai":
		v.Field("LLM api key", c.LLM.APIKey, Required)
	case "vertex":
		v.Field("GOOGLE_CLOUD_PROJECT", c.LLM.Project, Required)
		v.Field("GOOGLE_CLOUD_LOCATION", c.LLM.Location, Required)
	}
}

func configError(v *Validator) error {
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
