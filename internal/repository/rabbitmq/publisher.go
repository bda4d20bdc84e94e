package rabbitmq

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"media-job-service/internal/entity"
)

// JobEvent is the message sent when a job reaches a terminal status.
type JobEvent struct {
	JobID      string           `json:"job_id"`
	Kind       entity.JobKind   `json:"kind"`
	Status     entity.JobStatus `json:"status"`
	SourceRef  string           `json:"source_ref"`
	Title      string           `json:"title,omitempty"`
	Output     string           `json:"output,omitempty"`
	Error      string           `json:"error,omitempty"`
	Attempt    int              `json:"attempt"`
	FinishedAt time.Time        `json:"finished_at"`
}

func NewJobEvent(job entity.Job) JobEvent {
	ev := JobEvent{
		JobID:      job.ID.String(),
		Kind:       job.Kind,
		Status:     job.Status,
		SourceRef:  job.SourceRef,
		Title:      job.Title,
		Output:     job.Output,
		Attempt:    job.Attempt,
		FinishedAt: job.UpdatedAt,
	}
	if job.Error != nil {
		ev.Error = *job.Error
	}
	return ev
}

// RoutingKey is "jobs.<status>", e.g. jobs.completed.
func RoutingKey(status entity.JobStatus) string {
	return "jobs." + string(status)
}

type Publisher struct {
	channel  *amqp.Channel
	exchange string
}

func NewPublisher(conn *amqp.Connection, exchange string) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true, // durable
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}

	return &Publisher{channel: ch, exchange: exchange}, nil
}

// Record publishes the final state of a job.
func (p *Publisher) Record(ctx context.Context, job entity.Job) error {
	body, err := json.Marshal(NewJobEvent(job))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.channel.PublishWithContext(ctx,
		p.exchange,
		RoutingKey(job.Status),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    job.ID.String(),
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

func (p *Publisher) Close() error {
	return p.channel.Close()
}
