// Package queue distributes blur jobs over a Redis stream consumed by a
// consumer group.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gogpu/boxblur/internal/job"
)

// Queue errors.
var (
	// ErrBadMessage is returned for stream entries that do not hold a job.
	ErrBadMessage = errors.New("queue: malformed message")

	// ErrUnknownJob is returned by Status for IDs with no recorded state.
	ErrUnknownJob = errors.New("queue: unknown job")
)

// statusTTL bounds how long job states are kept.
const statusTTL = 24 * time.Hour

// Job states stored by the client.
const (
	StateQueued = "queued"
	StateDone   = "done"
	StateFailed = "failed"
)

// Options configures a Client.
type Options struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Group    string
}

// Message is a stream entry handed to a consumer. Job is nil when the entry
// could not be decoded.
type Message struct {
	ID         string
	Job        *job.Job
	Deliveries int64
}

// Status is the recorded state of a job.
type Status struct {
	State     string      `json:"state"`
	Result    *job.Result `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Client wraps a Redis connection bound to one stream and group.
type Client struct {
	rdb    *redis.Client
	stream string
	group  string
}

// NewClient connects to Redis and checks the connection.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.Stream == "" || opts.Group == "" {
		return nil, errors.New("queue: stream and group are required")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("queue: redis ping failed: %w", err)
	}

	return &Client{rdb: rdb, stream: opts.Stream, group: opts.Group}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) statusKey(jobID string) string {
	return statusKey(c.stream, jobID)
}

func statusKey(stream, jobID string) string {
	return fmt.Sprintf("%s:status:%s", stream, jobID)
}

// EnsureGroup creates the stream and consumer group if they do not exist.
func (c *Client) EnsureGroup(ctx context.Context) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("queue: create group %s: %w", c.group, err)
	}
	return nil
}

// Enqueue adds j to the stream and records it as queued.
func (c *Client) Enqueue(ctx context.Context, j job.Job) (string, error) {
	b, err := json.Marshal(j)
	if err != nil {
		return "", fmt.Errorf("queue: encode job: %w", err)
	}

	id, err := c.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: c.stream,
		Values: map[string]interface{}{"data": b},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("queue: add job %s: %w", j.ID, err)
	}

	if err := c.setStatus(ctx, j.ID, Status{State: StateQueued}); err != nil {
		return id, err
	}
	return id, nil
}

// Read waits up to block for the next new message for consumer. It returns
// an empty ID and nil job when nothing arrived. An entry that does not
// decode is returned with its ID and an error wrapping ErrBadMessage.
func (c *Client) Read(ctx context.Context, consumer string, block time.Duration) (string, *job.Job, error) {
	result, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: consumer,
		Streams:  []string{c.stream, ">"},
		Count:    1,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	if len(result) == 0 || len(result[0].Messages) == 0 {
		return "", nil, nil
	}

	msg := result[0].Messages[0]
	j, err := decodeJob(msg.Values)
	if err != nil {
		return msg.ID, nil, err
	}
	return msg.ID, j, nil
}

// Ack removes id from the group's pending list.
func (c *Client) Ack(ctx context.Context, id string) error {
	return c.rdb.XAck(ctx, c.stream, c.group, id).Err()
}

// ClaimStale moves up to count messages that have been pending for at least
// minIdle to consumer and returns them.
func (c *Client) ClaimStale(ctx context.Context, consumer string, minIdle time.Duration, count int) ([]Message, error) {
	pending, err := c.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.stream,
		Group:  c.group,
		Idle:   minIdle,
		Count:  int64(count),
		Start:  "-",
		End:    "+",
	}).Result()
	if err != nil || len(pending) == 0 {
		return nil, err
	}

	ids := make([]string, 0, len(pending))
	deliveries := make(map[string]int64, len(pending))
	for _, p := range pending {
		ids = append(ids, p.ID)
		deliveries[p.ID] = p.RetryCount
	}

	claimed, err := c.rdb.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.stream,
		Group:    c.group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return nil, err
	}

	msgs := make([]Message, 0, len(claimed))
	for _, m := range claimed {
		j, _ := decodeJob(m.Values)
		msgs = append(msgs, Message{ID: m.ID, Job: j, Deliveries: deliveries[m.ID]})
	}
	return msgs, nil
}

// MarkDone records a finished job.
func (c *Client) MarkDone(ctx context.Context, jobID string, res job.Result) error {
	return c.setStatus(ctx, jobID, Status{State: StateDone, Result: &res})
}

// MarkFailed records the latest failure of a job.
func (c *Client) MarkFailed(ctx context.Context, jobID string, cause error) error {
	return c.setStatus(ctx, jobID, Status{State: StateFailed, Error: cause.Error()})
}

// Status returns the recorded state of jobID.
func (c *Client) Status(ctx context.Context, jobID string) (Status, error) {
	data, err := c.rdb.Get(ctx, c.statusKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Status{}, fmt.Errorf("%w: %s", ErrUnknownJob, jobID)
	}
	if err != nil {
		return Status{}, err
	}

	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		return Status{}, fmt.Errorf("queue: decode status %s: %w", jobID, err)
	}
	return st, nil
}

func (c *Client) setStatus(ctx context.Context, jobID string, st Status) error {
	st.UpdatedAt = time.Now().UTC()
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("queue: encode status: %w", err)
	}
	if err := c.rdb.Set(ctx, c.statusKey(jobID), b, statusTTL).Err(); err != nil {
		return fmt.Errorf("queue: store status %s: %w", jobID, err)
	}
	return nil
}

func decodeJob(values map[string]interface{}) (*job.Job, error) {
	var data []byte
	switch t := values["data"].(type) {
	case string:
		data = []byte(t)
	case []byte:
		data = t
	default:
		return nil, fmt.Errorf("%w: missing data field", ErrBadMessage)
	}

	var j job.Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}
	if j.ID == "" {
		return nil, fmt.Errorf("%w: job without id", ErrBadMessage)
	}
	return &j, nil
}
