// Package mqprobe runs mq_status checks against the deployment's message
// broker: queue inspection and waiting for a message that references an
// uploaded file.
package mqprobe

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/neicnordic/LocalEGA-tester/internal/domain"
	"github.com/neicnordic/LocalEGA-tester/internal/infra/logger"
	"github.com/neicnordic/LocalEGA-tester/internal/ports"
)

// broker abstracts the AMQP operations so tests can fake them.
type broker interface {
	QueueDepth(queue string) (int, error)
	Consume(ctx context.Context, queue string) (<-chan []byte, error)
	Close() error
}

type connectFunc func(uri string) (broker, error)

type Runner struct {
	resolver *domain.VarResolver
	connect  connectFunc
}

type Option func(*Runner)

func WithResolver(vr *domain.VarResolver) Option {
	return func(r *Runner) { r.resolver = vr }
}

func withConnect(c connectFunc) Option {
	return func(r *Runner) { r.connect = c }
}

func New(opts ...Option) *Runner {
	r := &Runner{
		resolver: domain.NewVarResolver(),
		connect:  connectAMQP,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ ports.KindRunner = (*Runner)(nil)

func (r *Runner) Kinds() []domain.CheckKind {
	return []domain.CheckKind{domain.CheckMQStatus}
}

func (r *Runner) Run(ctx context.Context, check domain.CheckSpec, vars domain.Vars) (domain.CheckResult, error) {
	rt, err := r.resolver.NewRuntime(vars)
	if err != nil {
		return domain.CheckResult{}, err
	}

	resolved, err := rt.ResolveCheck(check)
	if err != nil {
		return domain.CheckResult{}, err
	}

	uri := resolved.Params["uri"]
	queue := resolved.Params["queue"]
	switch {
	case uri == "":
		return domain.CheckResult{}, configErr("params.uri must not be empty")
	case queue == "":
		return domain.CheckResult{}, configErr("params.queue must not be empty")
	}

	result := domain.CheckResult{
		Name:   resolved.Name,
		Kind:   resolved.Kind,
		Detail: map[string]string{"queue": queue},
	}

	start := time.Now()
	b, err := r.connect(uri)
	if err != nil {
		result.LatencyMS = time.Since(start).Milliseconds()
		result.Error = domain.NewRunError(err)
		return result, nil
	}
	defer b.Close()

	if contains := resolved.Params["contains"]; contains != "" {
		err = r.waitForMessage(ctx, b, queue, contains, result.Detail)
	} else {
		err = r.inspect(b, queue, result.Detail)
	}
	result.LatencyMS = time.Since(start).Milliseconds()

	if err != nil {
		result.Error = domain.NewRunError(err)
	}
	return result, nil
}

func (r *Runner) inspect(b broker, queue string, detail map[string]string) error {
	depth, err := b.QueueDepth(queue)
	if err != nil {
		return err
	}
	detail["depth"] = strconv.Itoa(depth)
	logger.L().Info("mqprobe.inspected", "queue", queue, "depth", depth)
	return nil
}

// waitForMessage consumes queue until a message body contains the marker
// or ctx expires. The broker layer never acknowledges deliveries, so every
// observed message returns to the queue when the channel closes.
func (r *Runner) waitForMessage(ctx context.Context, b broker, queue, marker string, detail map[string]string) error {
	msgs, err := b.Consume(ctx, queue)
	if err != nil {
		return err
	}

	seen := 0
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("no message referencing %q after %d messages: %w", marker, seen, ctx.Err())
		case body, ok := <-msgs:
			if !ok {
				return fmt.Errorf("broker closed delivery channel after %d messages", seen)
			}
			seen++
			if strings.Contains(string(body), marker) {
				detail["message"] = string(body)
				detail["messages_seen"] = strconv.Itoa(seen)
				logger.L().Info("mqprobe.matched", "queue", queue, "seen", seen)
				return nil
			}
		}
	}
}

func configErr(msg string) error {
	return &domain.OpError{
		Op:   "mqprobe.run",
		Kind: domain.KindInvalidConfig,
		Err:  errors.New(msg),
	}
}

// amqpBroker backs broker with a live AMQP connection and channel.
type amqpBroker struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func (b *amqpBroker) QueueDepth(queue string) (int, error) {
	q, err := b.ch.QueueDeclarePassive(queue, true, false, false, false, nil)
	if err != nil {
		return 0, err
	}
	return q.Messages, nil
}

func (b *amqpBroker) Consume(ctx context.Context, queue string) (<-chan []byte, error) {
	deliveries, err := b.ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, err
	}

	out := make(chan []byte)
	go forward(ctx, deliveries, out)
	return out, nil
}

// forward pumps delivery bodies to out without acknowledging anything.
// Unacked deliveries are requeued when the channel closes, so waiting for
// a message never drains the queue it observes.
func forward(ctx context.Context, deliveries <-chan amqp.Delivery, out chan<- []byte) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			select {
			case out <- d.Body:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (b *amqpBroker) Close() error {
	b.ch.Close()
	return b.conn.Close()
}

func connectAMQP(uri string) (broker, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	// Deliveries stay unacked until Close; bound how many pile up.
	if err := ch.Qos(64, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &amqpBroker{conn: conn, ch: ch}, nil
}
