package feed_ingestor_config

import (
	"strings"

	"github.com/spf13/viper"
)

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		_ = v.ReadInConfig()
	}

	v.SetDefault("feed.base_url", "https://feed.local/api/v1")
	v.SetDefault("feed.timeout", "15s")
	v.SetDefault("feed.user_agent", "Seisline/1.0")
	v.SetDefault("feed.attempts", 3)

	v.SetDefault("kafka_out.brokers", []string{"localhost:9094"})
	v.SetDefault("kafka_out.topic", "seisline.quake.matched")

	v.SetDefault("ingest.tick", "30s")
	v.SetDefault("ingest.batch_limit", 50)

	v.SetDefault("otel.enable", false)
	v.SetDefault("otel.service_name", "feed-ingestor")
	v.SetDefault("otel.sample_ratio", 1.0)
	v.SetDefault("otel.otlp_endpoint", "localhost:4317")

	v.SetDefault("server.metrics_addr", ":8081")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
