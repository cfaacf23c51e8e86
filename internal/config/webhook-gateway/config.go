package webhook_gateway_config

import (
	"time"

	"github.com/seisline/seisline/internal/obs"
	pginfra "github.com/seisline/seisline/internal/repository/postgres"
	schedinfra "github.com/seisline/seisline/internal/repository/schedulerapi"
	slackinfra "github.com/seisline/seisline/internal/repository/slackapi"
)

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type Auth struct {
	// APIKey guards the internal trigger callback and training admin
	// endpoints. SigningSecret verifies chat platform callbacks.
	APIKey        string `mapstructure:"api_key"`
	SigningSecret string `mapstructure:"signing_secret"`
}

type Crypto struct {
	KeyHex string `mapstructure:"key_hex"`
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
		App:    "seisline/webhook-gateway",
	}
}

type Config struct {
	DB        pginfra.Config    `mapstructure:"db"`
	Slack     slackinfra.Config `mapstructure:"slack"`
	Scheduler schedinfra.Config `mapstructure:"scheduler"`
	Server    Server            `mapstructure:"server"`
	Auth      Auth              `mapstructure:"auth"`
	Crypto    Crypto            `mapstructure:"crypto"`
	OTEL      OTEL              `mapstructure:"otel"`
	Log       Log               `mapstructure:"log"`
}
