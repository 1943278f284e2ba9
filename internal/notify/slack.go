package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

type slackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier posts plain-text messages with a bot token.
type SlackNotifier struct {
	client slackPoster
	logger *zap.Logger
}

// NewSlackNotifier returns a notifier for token. An empty token disables posting.
func NewSlackNotifier(token string, logger *zap.Logger) *SlackNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &SlackNotifier{logger: logger}
	if token != "" {
		n.client = slack.New(token)
	}
	return n
}

// Post sends text to channel.
func (n *SlackNotifier) Post(ctx context.Context, channel, text string) error {
	if n.client == nil {
		return ErrNotConfigured
	}
	_, ts, err := n.client.PostMessageContext(ctx, channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack post to %s: %w", channel, err)
	}
	n.logger.Debug("slack message posted", zap.String("channel", channel), zap.String("ts", ts))
	return nil
}
