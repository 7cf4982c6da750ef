package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/deckgen/internal/infrastructure/resilience"
)

type Queue struct {
	conn           *nats.Conn
	subject        string
	queueGroup     string
	handlerTimeout time.Duration
	executor       *resilience.Executor
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor

	// QueueGroup load-balances deck jobs across workers.
	QueueGroup string
	// HandlerTimeout bounds one job; zero means no limit.
	HandlerTimeout time.Duration
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	queueGroup := options.QueueGroup
	if queueGroup == "" {
		queueGroup = "deck-workers"
	}

	conn, err := nats.Connect(
		url,
		nats.Name("deckgen"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:           conn,
		subject:        subject,
		queueGroup:     queueGroup,
		handlerTimeout: options.HandlerTimeout,
		executor:       options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

type deckRequested struct {
	JobID       string    `json:"job_id"`
	RequestedAt time.Time `json:"requested_at"`
}

func encodeDeckRequested(jobID string, at time.Time) ([]byte, error) {
	return json.Marshal(deckRequested{JobID: jobID, RequestedAt: at.UTC()})
}

// decodeDeckRequested also accepts a bare job id.
func decodeDeckRequested(data []byte) (string, error) {
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return "", errors.New("empty deck request message")
	}
	if !strings.HasPrefix(raw, "{") {
		return raw, nil
	}
	var evt deckRequested
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		return "", fmt.Errorf("decode deck request: %w", err)
	}
	if evt.JobID == "" {
		return "", errors.New("deck request without job_id")
	}
	return evt.JobID, nil
}

func (q *Queue) PublishDeckRequested(ctx context.Context, jobID string) error {
	payload, err := encodeDeckRequested(jobID, time.Now())
	if err != nil {
		return fmt.Errorf("encode deck request: %w", err)
	}
	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return resilience.WrapTemporary("nats publish", classifyNATSError, err)
	}
	return nil
}

func (q *Queue) SubscribeDeckRequested(ctx context.Context, handler func(context.Context, string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, q.queueGroup, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		jobID, err := decodeDeckRequested(msg.Data)
		if err != nil {
			slog.Error("deck_request_invalid", "error", err)
			return
		}
		q.handle(ctx, jobID, handler)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func (q *Queue) handle(ctx context.Context, jobID string, handler func(context.Context, string) error) {
	var (
		handlerCtx context.Context
		cancel     context.CancelFunc
	)
	if q.handlerTimeout > 0 {
		handlerCtx, cancel = context.WithTimeout(ctx, q.handlerTimeout)
	} else {
		handlerCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	if err := handler(handlerCtx, jobID); err != nil {
		slog.Error("job_failed", "job_id", jobID, "error", err)
	}
}
