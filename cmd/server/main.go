package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"idea-relay/backend/internal/ai"
	"idea-relay/backend/internal/api"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.WithError(err).Warn("load .env")
	}
	configureLogging()

	baseDir, err := os.Getwd()
	if err != nil {
		logrus.Fatalf("determine working directory: %v", err)
	}

	dataDir := filepath.Join(baseDir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		logrus.Fatalf("create data directory: %v", err)
	}

	aiCfg := ai.Config{
		Enabled:       envBool("ENABLE_CONTENT_MODERATION", true),
		APIKey:        os.Getenv("GEMINI_API_KEY"),
		BaseURL:       os.Getenv("GEMINI_BASE_URL"),
		PrimaryModel:  os.Getenv("GEMINI_PRIMARY_MODEL"),
		FallbackModel: os.Getenv("GEMINI_FALLBACK_MODEL"),
	}
	if temp := os.Getenv("GEMINI_TEMPERATURE"); temp != "" {
		if v, err := strconv.ParseFloat(temp, 64); err == nil {
			aiCfg.Temperature = ai.Float(v)
		}
	}
	aiCfg.MaxRetries = envInt("AI_MAX_RETRIES", 0)
	aiCfg.ModerationDelay = envDuration("AI_MODERATION_DELAY")
	aiCfg.FusionDelay = envDuration("AI_FUSION_DELAY")
	aiCfg.RequestTimeout = envDuration("AI_REQUEST_TIMEOUT")
	aiCfg.MinDetailLength = envInt("MIN_DETAIL_LENGTH", 0)
	aiCfg.ThinCriteriaThreshold = envInt("THIN_CRITERIA_THRESHOLD", 0)
	aiCfg.FusionTitleLimit = envInt("FUSION_TITLE_LIMIT", 0)
	aiCfg.FusionDetailLimit = envInt("FUSION_DETAIL_LIMIT", 0)

	origins := []string{
		"http://localhost:5173",
		"http://127.0.0.1:5173",
	}
	if v := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); v != "" {
		origins = nil
		for _, origin := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}

	cfg := api.Config{
		DBPath:         filepath.Join(dataDir, "idea-relay.db"),
		AllowedOrigins: origins,
		SilentDB:       envBool("SILENT_DB", false),
		AIConfig:       aiCfg,
		DisableAI:      envBool("DISABLE_AI", false),
		RankingLimit:   envInt("RANKING_LIMIT", 0),
	}
	if override := strings.TrimSpace(os.Getenv("IDEA_RELAY_DB_PATH")); override != "" {
		cfg.DBPath = override
	}

	server, err := api.NewServer(cfg)
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}
	defer server.Close()

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	logrus.Infof("starting idea-relay backend on :%s", port)
	if err := router.Run(":" + port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}

func configureLogging() {
	if strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_FORMAT")), "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	if level := strings.TrimSpace(os.Getenv("LOG_LEVEL")); level != "" {
		parsed, err := logrus.ParseLevel(level)
		if err != nil {
			logrus.WithError(err).Warn("invalid LOG_LEVEL, keeping info")
			return
		}
		logrus.SetLevel(parsed)
	}
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

// envDuration returns zero when unset so ai.Config applies its default.
func envDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logrus.WithError(err).WithField("key", key).Warn("invalid duration")
		return 0
	}
	return d
}
