package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/ignite/bulk-dispatch/internal/dispatch"
	"github.com/ignite/bulk-dispatch/internal/pkg/logger"
)

// SESSender delivers through AWS SES v2. Each pool credential is an access
// key pair, so distinct credentials map onto distinct SES accounts; the
// envelope sender is the verified fromEmail shared across the pool.
// Clients are built lazily per credential and cached for the life of the
// sender.
type SESSender struct {
	region    string
	fromEmail string

	mu      sync.Mutex
	clients map[string]*sesv2.Client
}

// NewSESSender creates an SES sender for the given region and verified
// sender address.
func NewSESSender(region, fromEmail string) *SESSender {
	if region == "" {
		region = "us-east-1"
	}
	return &SESSender{
		region:    region,
		fromEmail: fromEmail,
		clients:   make(map[string]*sesv2.Client),
	}
}

// Send delivers one message through SES under cred.
func (s *SESSender) Send(ctx context.Context, cred dispatch.Credential, msg *dispatch.Message) (*dispatch.SendResult, error) {
	client, err := s.client(ctx, cred)
	if err != nil {
		return &dispatch.SendResult{Success: false, Err: err}, nil
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", msg.FromName, s.fromEmail)),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if msg.Text != "" {
		input.Content.Simple.Body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}
	}

	out, err := client.SendEmail(ctx, input)
	if err != nil {
		logger.Warn("ses send failed",
			"recipient", msg.To,
			"identity", cred.Identity,
			"error", err.Error(),
		)
		return &dispatch.SendResult{
			Success: false,
			Err:     &dispatch.DeliveryError{Recipient: msg.To, Credential: cred.Identity, Err: err},
		}, nil
	}

	messageID := ""
	if out.MessageId != nil {
		messageID = *out.MessageId
	}
	logger.Debug("ses send accepted", "recipient", msg.To, "identity", cred.Identity, "message_id", messageID)

	return &dispatch.SendResult{Success: true, MessageID: messageID}, nil
}

func (s *SESSender) client(ctx context.Context, cred dispatch.Credential) (*sesv2.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.clients[cred.Identity]; ok {
		return c, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(s.region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cred.Identity, cred.Secret, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("ses client init for %s: %w", cred.Identity, err)
	}

	c := sesv2.NewFromConfig(cfg)
	s.clients[cred.Identity] = c
	return c, nil
}
