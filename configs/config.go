package config

import (
	"os"
	"strconv"
)

type Config struct {
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	RedisHost     string
	RedisPort     string
	EtcdEndpoints []string

	// SweepCron is the cron expression driving the schedulability-sweep
	// daemon's synthetic scenario generation, reusing the teacher's
	// cron.Parser/schedule.Next pattern.
	SweepCron         string
	LeaderElectionTTL int
	APIPort           string
	ForecastURL       string

	// SweepHorizon is the simulated tick count given to every sweep-
	// generated scenario. SweepTargetUtilFraction scales each scenario's
	// target utilization sum relative to SIM_NUM_CORES (e.g. 0.6 sweeps
	// scenarios at 60% of the platform's core capacity).
	SweepHorizon            int64
	SweepTargetUtilFraction float64

	// Default fault-model and platform knobs applied to swept scenarios
	// when a request does not override them.
	NumCores          int
	NumFaulty         int
	ActiveBackups     int
	LambdaC           float64
	LambdaB           float64
	LambdaR           float64
	BurstyChance      float64
	FaultPeriodScaler int64

	// Archive settings for schedules too large to persist inline.
	ArchiveBucket          string
	ArchivePrefix          string
	ArchiveRegion          string
	ArchiveEndpoint        string
	ArchiveAccessKeyID     string
	ArchiveSecretAccessKey string
	ArchiveLocalCacheDir   string
	ArchiveThresholdBytes  int64

	// Auth settings
	JWTSecret   string
	JWTIssuer   string
	AuthEnabled bool

	// Tracing settings
	TracingEnabled  bool
	TracingEndpoint string
}

func LoadConfig() *Config {
	return &Config{
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "5432"),
		DBUser:            getEnv("DB_USER", "ftmgedf"),
		DBPassword:        getEnv("DB_PASSWORD", "password"),
		DBName:            getEnv("DB_NAME", "ftmgedf"),
		RedisHost:         getEnv("REDIS_HOST", "localhost"),
		RedisPort:         getEnv("REDIS_PORT", "6379"),
		EtcdEndpoints:     []string{getEnv("ETCD_ENDPOINTS", "localhost:2379")},
		SweepCron:         getEnv("SWEEP_CRON", "0 */6 * * *"),
		LeaderElectionTTL: getEnvAsInt("LEADER_ELECTION_TTL", 15),
		APIPort:           getEnv("API_PORT", "8080"),
		ForecastURL:             getEnv("FORECAST_SERVICE_URL", "http://localhost:8000"),
		SweepHorizon:            int64(getEnvAsInt("SWEEP_HORIZON", 5000)),
		SweepTargetUtilFraction: getEnvAsFloat("SWEEP_TARGET_UTIL_FRACTION", 0.6),

		NumCores:          getEnvAsInt("SIM_NUM_CORES", 8),
		NumFaulty:         getEnvAsInt("SIM_NUM_FAULTY", 2),
		ActiveBackups:     getEnvAsInt("SIM_ACTIVE_BACKUPS", 1),
		LambdaC:           getEnvAsFloat("SIM_LAMBDA_C", 0.0005),
		LambdaB:           getEnvAsFloat("SIM_LAMBDA_B", 0.02),
		LambdaR:           getEnvAsFloat("SIM_LAMBDA_R", 0.05),
		BurstyChance:      getEnvAsFloat("SIM_BURSTY_CHANCE", 0.3),
		FaultPeriodScaler: int64(getEnvAsInt("SIM_FAULT_PERIOD_SCALER", 50)),

		ArchiveBucket:          getEnv("ARCHIVE_BUCKET", "ftmgedf-schedules"),
		ArchivePrefix:          getEnv("ARCHIVE_PREFIX", "schedules/runs/"),
		ArchiveRegion:          getEnv("ARCHIVE_REGION", "us-east-1"),
		ArchiveEndpoint:        getEnv("ARCHIVE_ENDPOINT", ""),
		ArchiveAccessKeyID:     getEnv("ARCHIVE_ACCESS_KEY_ID", ""),
		ArchiveSecretAccessKey: getEnv("ARCHIVE_SECRET_ACCESS_KEY", ""),
		ArchiveLocalCacheDir:   getEnv("ARCHIVE_LOCAL_CACHE_DIR", "/tmp/ftmgedf-archive-cache"),
		ArchiveThresholdBytes:  int64(getEnvAsInt("ARCHIVE_THRESHOLD_BYTES", 65536)),

		// Auth settings
		JWTSecret:   getEnv("JWT_SECRET", ""),
		JWTIssuer:   getEnv("JWT_ISSUER", "ftmgedf"),
		AuthEnabled: getEnvAsBool("AUTH_ENABLED", false),

		// Tracing settings
		TracingEnabled:  getEnvAsBool("TRACING_ENABLED", false),
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	return valueStr == "true" || valueStr == "1" || valueStr == "yes"
}
