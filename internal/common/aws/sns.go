// internal/common/aws/sns.go
package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"crm-ai-workers/internal/common/logger"
	"crm-ai-workers/internal/common/metrics"
	"crm-ai-workers/internal/generation"
)

// Publisher is the part of the SNS API the alerter needs.
type Publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func NewSNSClient(ctx context.Context, region string) (*sns.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return sns.NewFromConfig(cfg), nil
}

// DegradationAlerter publishes one SNS message per operation that could
// not be served by the model.
type DegradationAlerter struct {
	client   Publisher
	topicARN string
	logger   logger.Logger
}

var _ generation.Alerter = (*DegradationAlerter)(nil)

func NewDegradationAlerter(client Publisher, topicARN string, log logger.Logger) *DegradationAlerter {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &DegradationAlerter{client: client, topicARN: topicARN, logger: log}
}

type alertMessage struct {
	Kind      string `json:"kind"`
	AccountID string `json:"accountId,omitempty"`
	Attempts  int    `json:"attempts"`
	Reason    string `json:"reason"`
	At        string `json:"at"`
}

func (a *DegradationAlerter) Unavailable(ctx context.Context, alert generation.Alert) error {
	body, err := json.Marshal(alertMessage{
		Kind:      alert.Kind.String(),
		AccountID: alert.AccountID,
		Attempts:  alert.Attempts,
		Reason:    alert.Reason,
		At:        alert.At.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}

	out, err := a.client.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(a.topicARN),
		Subject:  awssdk.String("AI generation unavailable: " + alert.Kind.String()),
		Message:  awssdk.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"kind": {DataType: awssdk.String("String"), StringValue: awssdk.String(alert.Kind.String())},
		},
	})
	if err != nil {
		metrics.AlertsPublished.WithLabelValues("failed").Inc()
		return fmt.Errorf("sns publish failed: %w", err)
	}

	metrics.AlertsPublished.WithLabelValues("published").Inc()
	a.logger.Info("degradation alert published", map[string]interface{}{
		"kind":      alert.Kind.String(),
		"messageId": awssdk.ToString(out.MessageId),
	})
	return nil
}
