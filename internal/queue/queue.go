// Package queue carries optimizer requests to the optimizer service and its
// results back over Redis streams.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/boostv/optimizer-core/internal/converter"
	"github.com/boostv/optimizer-core/internal/experiment"
	"github.com/boostv/optimizer-core/internal/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// StreamRequests is the Redis stream for optimizer requests (core pushes, optimizer pops).
	StreamRequests = "optimizer_requests"
	// StreamResults is the Redis stream for optimizer results (optimizer pushes, core pops).
	StreamResults = "optimizer_results"

	// GroupOptimizer is the consumer group for optimizer workers.
	GroupOptimizer = "optimizer_pool"
	// GroupCore is the consumer group for processes applying results.
	GroupCore = "core_pool"
)

// ErrNoMessages is returned when a non-blocking read finds nothing.
var ErrNoMessages = errors.New("no messages")

// RequestMessage is the payload pushed to the optimizer_requests stream.
type RequestMessage struct {
	RequestID    string            `json:"request_id"`
	ExperimentID string            `json:"experiment_id"`
	Hash         string            `json:"hash"`
	Request      converter.Request `json:"request"`
}

// ResultMessage is the payload pushed to the optimizer_results stream.
type ResultMessage struct {
	RequestID    string             `json:"request_id"`
	ExperimentID string             `json:"experiment_id"`
	Hash         string             `json:"hash"`
	Result       experiment.Results `json:"result"`
}

// NewRequestMessage builds the request for e under a fresh request id.
func NewRequestMessage(e experiment.Experiment) RequestMessage {
	req := converter.NewRequest(e)
	return RequestMessage{
		RequestID:    uuid.NewString(),
		ExperimentID: e.ID,
		Hash:         converter.Hash(req),
		Request:      req,
	}
}

// Queue manages the Redis streams between core and optimizer.
type Queue struct {
	client *redis.Client
}

// New creates a Queue from a Redis client.
func New(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// ConnectRedis creates a Redis client from a URL.
func ConnectRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// EnsureStreams creates the consumer groups if they don't exist.
func (q *Queue) EnsureStreams(ctx context.Context) error {
	for _, pair := range []struct {
		stream, group string
	}{
		{StreamRequests, GroupOptimizer},
		{StreamResults, GroupCore},
	} {
		err := q.client.XGroupCreateMkStream(ctx, pair.stream, pair.group, "0").Err()
		if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
			return fmt.Errorf("create group %s on %s: %w", pair.group, pair.stream, err)
		}
	}
	return nil
}

// PushRequest adds a request message to the optimizer_requests stream.
func (q *Queue) PushRequest(ctx context.Context, msg RequestMessage) (string, error) {
	values, err := requestValues(msg)
	if err != nil {
		return "", err
	}
	id, err := q.client.XAdd(ctx, &redis.XAddArgs{Stream: StreamRequests, Values: values}).Result()
	if err != nil {
		return "", fmt.Errorf("push request: %w", err)
	}
	log := logger.Get("queue")
	log.Debug().
		Str("request", msg.RequestID).
		Str("experiment", msg.ExperimentID).
		Str("stream_id", id).
		Msg("pushed optimizer request")
	return id, nil
}

// PushResult adds a result message to the optimizer_results stream.
func (q *Queue) PushResult(ctx context.Context, msg ResultMessage) (string, error) {
	values, err := resultValues(msg)
	if err != nil {
		return "", err
	}
	id, err := q.client.XAdd(ctx, &redis.XAddArgs{Stream: StreamResults, Values: values}).Result()
	if err != nil {
		return "", fmt.Errorf("push result: %w", err)
	}
	return id, nil
}

// ReadRequest reads one request message. block of 0 waits indefinitely; a
// negative block returns ErrNoMessages immediately when the stream is empty.
func (q *Queue) ReadRequest(ctx context.Context, consumer string, block time.Duration) (*RequestMessage, string, error) {
	msg, err := q.readOne(ctx, StreamRequests, GroupOptimizer, consumer, block)
	if err != nil {
		return nil, "", fmt.Errorf("read request: %w", err)
	}
	req, err := decodeRequest(msg.Values)
	if err != nil {
		return nil, msg.ID, err
	}
	return req, msg.ID, nil
}

// ReadResult reads one result message, blocking as ReadRequest does.
func (q *Queue) ReadResult(ctx context.Context, consumer string, block time.Duration) (*ResultMessage, string, error) {
	msg, err := q.readOne(ctx, StreamResults, GroupCore, consumer, block)
	if err != nil {
		return nil, "", fmt.Errorf("read result: %w", err)
	}
	res, err := decodeResult(msg.Values)
	if err != nil {
		return nil, msg.ID, err
	}
	return res, msg.ID, nil
}

func (q *Queue) readOne(ctx context.Context, stream, group, consumer string, block time.Duration) (redis.XMessage, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    1,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return redis.XMessage{}, ErrNoMessages
	}
	if err != nil {
		return redis.XMessage{}, err
	}
	for _, s := range streams {
		for _, msg := range s.Messages {
			return msg, nil
		}
	}
	return redis.XMessage{}, ErrNoMessages
}

// AckRequest acknowledges a request message.
func (q *Queue) AckRequest(ctx context.Context, msgID string) error {
	return q.client.XAck(ctx, StreamRequests, GroupOptimizer, msgID).Err()
}

// AckResult acknowledges a result message.
func (q *Queue) AckResult(ctx context.Context, msgID string) error {
	return q.client.XAck(ctx, StreamResults, GroupCore, msgID).Err()
}

// Status returns message counts for both streams.
func (q *Queue) Status(ctx context.Context) (requests, results int64, err error) {
	requests, err = q.client.XLen(ctx, StreamRequests).Result()
	if err != nil {
		return 0, 0, err
	}
	results, err = q.client.XLen(ctx, StreamResults).Result()
	if err != nil {
		return 0, 0, err
	}
	return requests, results, nil
}

func requestValues(msg RequestMessage) (map[string]any, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return map[string]any{
		"request_id":    msg.RequestID,
		"experiment_id": msg.ExperimentID,
		"hash":          msg.Hash,
		"payload":       string(payload),
	}, nil
}

func resultValues(msg ResultMessage) (map[string]any, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return map[string]any{
		"request_id":    msg.RequestID,
		"experiment_id": msg.ExperimentID,
		"hash":          msg.Hash,
		"payload":       string(payload),
	}, nil
}

func decodeRequest(values map[string]any) (*RequestMessage, error) {
	var msg RequestMessage
	if err := json.Unmarshal([]byte(getString(values, "payload")), &msg); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return &msg, nil
}

func decodeResult(values map[string]any) (*ResultMessage, error) {
	var msg ResultMessage
	if err := json.Unmarshal([]byte(getString(values, "payload")), &msg); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if msg.ExperimentID == "" {
		return nil, fmt.Errorf("decode result: %w: missing experiment id", experiment.ErrSchemaValidation)
	}
	if err := experiment.Validate(msg.Result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &msg, nil
}

func getString(values map[string]any, key string) string {
	if v, ok := values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
