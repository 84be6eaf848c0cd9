package sns

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/jobportal-api/internal/config"
	"github.com/jobportal-api/internal/domain"
	"github.com/jobportal-api/internal/infrastructure/awsinfra"
)

// EventPromoted is the event_type attribute on promotion notifications.
const EventPromoted = "recruiter.promoted"

// PublishAPI is the subset of the SNS client used here.
type PublishAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// PromotionPublisher announces completed recruiter promotions on an SNS topic.
type PromotionPublisher struct {
	client   PublishAPI
	topicARN string
}

func NewClient(ctx context.Context, cfg *config.Config) (*sns.Client, error) {
	awsCfg, err := awsinfra.LoadConfig(ctx, cfg, cfg.SNSRegion)
	if err != nil {
		return nil, err
	}
	return sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if ep := awsinfra.Endpoint(cfg); ep != nil {
			o.BaseEndpoint = ep
		}
	}), nil
}

func NewPromotionPublisher(client PublishAPI, topicARN string) *PromotionPublisher {
	return &PromotionPublisher{client: client, topicARN: topicARN}
}

func (p *PromotionPublisher) PublishPromotion(ctx context.Context, e domain.PromotionEvent) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal promotion event: %w", err)
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type": {DataType: aws.String("String"), StringValue: aws.String(EventPromoted)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}
