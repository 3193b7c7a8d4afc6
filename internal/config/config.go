package config

import (
	"flag"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	// PredictURL is the base URL of the external soil-classification service.
	PredictURL string

	Advisory AdvisoryConfig
	Record   RecordConfig
	Photo    PhotoConfig
}

type AdvisoryConfig struct {
	Model         string
	FallbackModel string
	RPS           float64
	Burst         int
}

type RecordConfig struct {
	PGDSN    string
	FilePath string
}

type PhotoConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8080", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	return &Config{
		Port:       *port,
		Env:        env,
		PredictURL: firstNonEmpty(strings.TrimSpace(os.Getenv("PREDICT_API_URL")), "http://127.0.0.1:5000"),
		Advisory: AdvisoryConfig{
			Model:         firstNonEmpty(strings.TrimSpace(os.Getenv("ADVISORY_MODEL")), "gemini-2.5-flash"),
			FallbackModel: firstNonEmpty(strings.TrimSpace(os.Getenv("ADVISORY_FALLBACK_MODEL")), "gemini-2.5-pro"),
			RPS:           envFloat("ADVISORY_RPS", 0),
			Burst:         envInt("ADVISORY_BURST", 0),
		},
		Record: RecordConfig{
			PGDSN:    strings.TrimSpace(os.Getenv("RECORD_PG_DSN")),
			FilePath: firstNonEmpty(strings.TrimSpace(os.Getenv("RECORD_FILE_PATH")), "data/diagnoses.json"),
		},
		Photo: loadPhotoConfig(env),
	}, nil
}

func loadPhotoConfig(env string) PhotoConfig {
	endpoint := resolvePhotoEndpoint(env)
	return PhotoConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("PHOTO_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("PHOTO_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("PHOTO_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("PHOTO_S3_BUCKET")), "soildiag-photos"),
		UseSSL:    resolvePhotoUseSSL(env),
	}
}

func resolvePhotoEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return firstNonEmpty(strings.TrimSpace(os.Getenv("PHOTO_MINIO_ENDPOINT")), "minio:9000")
	}
	return strings.TrimSpace(os.Getenv("PHOTO_S3_ENDPOINT"))
}

func resolvePhotoUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("PHOTO_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func envFloat(key string, def float64) float64 {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
