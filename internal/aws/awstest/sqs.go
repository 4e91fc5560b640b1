package awstest

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQS records every message sent to it.
type SQS struct {
	mu       sync.Mutex
	Err      error
	Messages []*sqs.SendMessageInput
}

func (q *SQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return nil, q.Err
	}
	q.Messages = append(q.Messages, params)
	return &sqs.SendMessageOutput{MessageId: awsString(fmt.Sprintf("msg-%d", len(q.Messages)))}, nil
}

// Bodies returns the bodies of all sent messages.
func (q *SQS) Bodies() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.Messages))
	for _, m := range q.Messages {
		out = append(out, *m.MessageBody)
	}
	return out
}
