// Package queue publishes unit-completion messages to SQS for downstream
// consumers that watch for newly extracted artifacts.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"

	"github.com/rhellums/gfs-pull/internal/pipeline"
	"github.com/rhellums/gfs-pull/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// UnitCompletion is the message body published after each retrieval unit.
type UnitCompletion struct {
	MessageID       string    `json:"message_id"`
	RunID           string    `json:"run_id"`
	Date            string    `json:"date"`
	Cycle           string    `json:"cycle"`
	LeadHour        string    `json:"lead_hour"`
	Downloaded      bool      `json:"downloaded"`
	Artifacts       []string  `json:"artifacts,omitempty"`
	FailedVariables []string  `json:"failed_variables,omitempty"`
	CompletedAt     time.Time `json:"completed_at"`
}

// CompletionPublisher sends one UnitCompletion per finished unit. It
// implements pipeline.UnitSink.
type CompletionPublisher struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
	now      func() time.Time
}

// NewCompletionPublisher creates a publisher targeting queueURL.
func NewCompletionPublisher(client SQSSender, queueURL string, logger *slog.Logger) *CompletionPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompletionPublisher{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RecordUnit serializes the unit outcome and sends it. Failures are returned
// for the orchestrator to log; they never affect the pipeline.
func (p *CompletionPublisher) RecordUnit(ctx context.Context, runID string, res pipeline.UnitResult) error {
	msg := UnitCompletion{
		MessageID:       uuid.New().String(),
		RunID:           runID,
		Date:            res.Key.DateString(),
		Cycle:           res.Key.Cycle,
		LeadHour:        res.Key.Lead.String(),
		Downloaded:      res.DownloadErr == nil,
		Artifacts:       res.ArtifactPaths(),
		FailedVariables: res.FailedVariables(),
		CompletedAt:     p.now(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return types.NewAppError(types.ErrCodeQueuePublish, "marshaling unit completion", err)
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return types.NewAppError(types.ErrCodeQueuePublish,
			fmt.Sprintf("sending unit completion for %s %s f%s", msg.Date, msg.Cycle, msg.LeadHour), err)
	}

	p.logger.DebugContext(ctx, "unit completion published",
		"queue_url", p.queueURL,
		"run_id", runID,
		"date", msg.Date,
		"cycle", msg.Cycle,
		"lead_hour", msg.LeadHour,
	)
	return nil
}
