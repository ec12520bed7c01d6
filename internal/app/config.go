package app

import (
	"strings"
	"time"

	"github.com/movecraft/choreo-backend/internal/embedding"
	"github.com/movecraft/choreo-backend/internal/platform/envutil"
	"github.com/movecraft/choreo-backend/internal/platform/logger"
	"github.com/movecraft/choreo-backend/internal/search"
)

type Config struct {
	Port              string
	AllowOrigins      []string
	CorpusCacheTTL    time.Duration
	FusionWeights     embedding.Weights
	AccelSearchURL    string
	RenderProfilePath string
}

func LoadConfig(log *logger.Logger) Config {
	origins := strings.Split(envutil.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return Config{
		Port:           envutil.GetEnv("PORT", "8080", log),
		AllowOrigins:   origins,
		CorpusCacheTTL: envutil.GetEnvAsDuration("CORPUS_CACHE_TTL", time.Hour, log),
		FusionWeights: embedding.Weights{
			Pose:  envutil.GetEnvAsFloat("FUSION_WEIGHT_POSE", embedding.DefaultWeights.Pose, log),
			Audio: envutil.GetEnvAsFloat("FUSION_WEIGHT_AUDIO", embedding.DefaultWeights.Audio, log),
			Text:  envutil.GetEnvAsFloat("FUSION_WEIGHT_TEXT", embedding.DefaultWeights.Text, log),
		},
		AccelSearchURL:    strings.TrimSpace(envutil.GetEnv("ACCEL_SEARCH_URL", "", log)),
		RenderProfilePath: strings.TrimSpace(envutil.GetEnv("RENDER_PROFILE_PATH", "", log)),
	}
}

// AccelConfig builds the sidecar config when accelerated search is enabled.
func (c Config) AccelConfig(log *logger.Logger) (search.AccelConfig, bool) {
	if c.AccelSearchURL == "" {
		return search.AccelConfig{}, false
	}
	timeout := envutil.GetEnvAsDuration("ACCEL_SEARCH_TIMEOUT", 10*time.Second, log)
	return search.AccelConfig{URL: c.AccelSearchURL, Timeout: timeout}, true
}
