// Package ses implements a Provider that delivers notifications via the
// AWS SES v2 API.
package ses

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sesv2 "github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/dsw-integrations/email-submitter/internal/email"
	"github.com/dsw-integrations/email-submitter/internal/mailer"
	"github.com/dsw-integrations/email-submitter/internal/provider"
)

// Config holds the settings for creating a SES Provider. When the static
// credentials are empty, the default AWS credential chain is used.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// SendEmailAPI is the interface for the SES v2 SendEmail operation.
// Used for testing with mock implementations.
type SendEmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Provider sends notifications via the AWS SES v2 API. Notifications with
// attachments are sent as raw MIME messages; plain ones use the SES simple
// format. Each Send is exactly one delivery attempt.
type Provider struct {
	client SendEmailAPI
}

// New creates a SES Provider with the given configuration.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Provider{client: sesv2.NewFromConfig(awsCfg)}, nil
}

// NewWithClient creates a Provider with a custom client, used for testing.
func NewWithClient(client SendEmailAPI) *Provider {
	return &Provider{client: client}
}

// Send delivers a composed notification via SES.
func (p *Provider) Send(ctx context.Context, msg *email.Email) error {
	input, err := buildInput(msg)
	if err != nil {
		return provider.Errf(provider.KindProtocol, "failed to build SES request: %w", err)
	}

	if _, err := p.client.SendEmail(ctx, input); err != nil {
		return provider.Errf(provider.KindProtocol, "SES API request failed: %w", err)
	}
	return nil
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "ses"
}

func buildInput(msg *email.Email) (*sesv2.SendEmailInput, error) {
	if len(msg.Attachments) > 0 {
		var buf bytes.Buffer
		if _, err := mailer.BuildMIME(msg).WriteTo(&buf); err != nil {
			return nil, err
		}
		return &sesv2.SendEmailInput{
			FromEmailAddress: aws.String(msg.From),
			Destination: &types.Destination{
				ToAddresses: []string{msg.To},
			},
			Content: &types.EmailContent{
				Raw: &types.RawMessage{Data: buf.Bytes()},
			},
		}, nil
	}

	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination: &types.Destination{
			ToAddresses: []string{msg.To},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(msg.Subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Text: &types.Content{
						Data:    aws.String(msg.TextBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}, nil
}
