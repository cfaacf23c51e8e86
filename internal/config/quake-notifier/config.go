package quake_notifier_config

import (
	"github.com/seisline/seisline/internal/obs"
	kafkax "github.com/seisline/seisline/internal/repository/kafka"
	pginfra "github.com/seisline/seisline/internal/repository/postgres"
	slackinfra "github.com/seisline/seisline/internal/repository/slackapi"
)

type KafkaIn struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	GroupID       string   `mapstructure:"group_id"`
	FromBeginning bool     `mapstructure:"from_beginning"`
}

func (k *KafkaIn) AsConsumerConfig() *kafkax.ConsumerConfig {
	return &kafkax.ConsumerConfig{
		Brokers:       k.Brokers,
		Topic:         k.Topic,
		GroupID:       k.GroupID,
		FromBeginning: k.FromBeginning,
	}
}

type Crypto struct {
	// KeyHex is the hex-encoded 32-byte AES key shared with the admin
	// surface that encrypts workspace bot tokens.
	KeyHex string `mapstructure:"key_hex"`
}

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func (lc *Log) AsLoggerConfig() *obs.LogConfig {
	return &obs.LogConfig{
		Level:  lc.Level,
		Pretty: lc.Pretty,
		App:    "seisline/quake-notifier",
	}
}

type Config struct {
	DB     pginfra.Config    `mapstructure:"db"`
	In     KafkaIn           `mapstructure:"kafka_in"`
	Slack  slackinfra.Config `mapstructure:"slack"`
	Crypto Crypto            `mapstructure:"crypto"`
	Server Server            `mapstructure:"server"`
	OTEL   OTEL              `mapstructure:"otel"`
	Log    Log               `mapstructure:"log"`
}
