// Package slackapi implements the chat gateway over the Slack Web API.
// Tokens arrive per call (one workspace, one bot token); the client itself
// holds no credentials.
package slackapi

import (
	"context"
	"fmt"
	"time"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/seisline/seisline/internal/chat"
	"github.com/seisline/seisline/internal/domain/notify"
)

type Config struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	RatePerSecond int           `mapstructure:"rate_per_second"`
}

type Gateway struct {
	cfg     Config
	limiter *rate.Limiter
	log     *zap.Logger
}

var _ notify.ChatGateway = (*Gateway)(nil)

func New(cfg Config, log *zap.Logger) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 1
	}
	if log == nil {
		log = zap.L()
	}
	return &Gateway{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RatePerSecond)), cfg.RatePerSecond),
		log:     log.With(zap.String("component", "slack.gateway")),
	}
}

func (g *Gateway) PostMessage(ctx context.Context, token, channelID string, blocks notify.MessageBlocks) (string, error) {
	msg, err := asMessage(blocks)
	if err != nil {
		return "", err
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	api := slack.New(token)
	_, ts, err := api.PostMessageContext(ctx, channelID,
		slack.MsgOptionText(msg.Fallback(), false),
		slack.MsgOptionBlocks(msg.Blocks()...),
	)
	if err != nil {
		return "", fmt.Errorf("slack post message: %w", err)
	}
	g.log.Debug("message posted", zap.String("channel", channelID), zap.String("ts", ts))
	return ts, nil
}

func (g *Gateway) UpdateMessage(ctx context.Context, token, channelID, messageTS string, blocks notify.MessageBlocks) error {
	msg, err := asMessage(blocks)
	if err != nil {
		return err
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	api := slack.New(token)
	if _, _, _, err := api.UpdateMessageContext(ctx, channelID, messageTS,
		slack.MsgOptionText(msg.Fallback(), false),
		slack.MsgOptionBlocks(msg.Blocks()...),
	); err != nil {
		return fmt.Errorf("slack update message: %w", err)
	}
	return nil
}

func asMessage(blocks notify.MessageBlocks) (*chat.Message, error) {
	msg, ok := blocks.(*chat.Message)
	if !ok {
		return nil, fmt.Errorf("unsupported block payload %T", blocks)
	}
	return msg, nil
}
