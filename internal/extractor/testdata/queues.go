package queues

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	s3api "github.com/aws/aws-sdk-go-v2/service/s3"
)

type Poller struct {
	sqsClient *sqs.Client
}

// Poll receives one batch.
//
//reqprops:required
func (p *Poller) Poll(ctx context.Context) error {
	_, err := p.sqsClient.ReceiveMessage().QueueUrl("jobs").Do()
	return err
}

//reqprops:required services = s3
func Fetch(client *s3api.Client, bucket string) {
	out, err := client.GetObject().Bucket(bucket).Do()
	_, _ = out, err
}

//reqprops:required services = sqs
func Drain(cfg Config) {
	queueClient := sqs.NewFromConfig(cfg)
	var n = 3
	queueClient.DeleteMessage().Do()
	_ = n
}

//reqprops:required
func Publish(ctx context.Context, client *sqs.Client, url string) error {
	_, err := client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(url),
		MessageBody: aws.String("hi"),
	})
	return err
}

func Unmarked() {}
