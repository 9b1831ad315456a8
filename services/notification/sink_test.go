package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"kudos-controlplane/pkg/taskname"
)

type enqueuerMock struct {
	tasks []*asynq.Task
	err   error
}

func (m *enqueuerMock) Enqueue(_ context.Context, t *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.tasks = append(m.tasks, t)
	return &asynq.TaskInfo{ID: "t"}, nil
}

type producerMock struct {
	keys   []string
	values []any
	err    error
}

func (m *producerMock) ProduceJSON(_ context.Context, key []byte, v any) error {
	if m.err != nil {
		return m.err
	}
	m.keys = append(m.keys, string(key))
	m.values = append(m.values, v)
	return nil
}

func TestTaskSinkEnqueuesEvents(t *testing.T) {
	enq := &enqueuerMock{}
	sink := NewTaskSink(enq)

	e := NewRewardClaimed(3, "alice", 10)
	e.ID = 99
	require.NoError(t, sink.Publish(context.Background(), []*Event{e}))
	require.Len(t, enq.tasks, 1)
	require.Equal(t, taskname.EventPublish, enq.tasks[0].Type())

	var got Event
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &got))
	require.Equal(t, int64(99), got.ID)
	require.Equal(t, RewardClaimed, got.Type)
	require.NotNil(t, got.Reward)
	require.Equal(t, int64(10), *got.Reward)
}

func TestRewardClaimedPayloadKeepsZeroReward(t *testing.T) {
	payload, err := json.Marshal(NewRewardClaimed(1, "alice", 0))
	require.NoError(t, err)
	require.Contains(t, string(payload), `"reward":0`)

	payload, err = json.Marshal(NewContributionApproval(1, "alice"))
	require.NoError(t, err)
	require.NotContains(t, string(payload), `"reward"`)
}

func TestTaskSinkTreatsDuplicateAsDelivered(t *testing.T) {
	sink := NewTaskSink(&enqueuerMock{err: asynq.ErrTaskIDConflict})
	require.NoError(t, sink.Publish(context.Background(), []*Event{NewIdentityRegistered("bobby", "alice")}))

	sink = NewTaskSink(&enqueuerMock{err: errors.New("redis down")})
	require.Error(t, sink.Publish(context.Background(), []*Event{NewIdentityRegistered("bobby", "alice")}))
}

func TestKafkaSinkKeysByContribution(t *testing.T) {
	p := &producerMock{}
	sink := &KafkaSink{producer: p}

	require.NoError(t, sink.Publish(context.Background(), []*Event{
		NewContributionApproval(5, "alice"),
		NewRewardClaimed(5, "alice", 10),
	}))
	require.Equal(t, []string{"5", "5"}, p.keys)
}

func TestRelayHandleEventPublish(t *testing.T) {
	sink := &sinkMock{}
	relay := NewRelay(sink)

	payload, err := json.Marshal(NewRewardClaimed(1, "alice", 10))
	require.NoError(t, err)

	require.NoError(t, relay.HandleEventPublish(context.Background(), asynq.NewTask(taskname.EventPublish, payload)))
	require.Len(t, sink.published, 1)
	require.Equal(t, "alice", sink.published[0].Account)

	err = relay.HandleEventPublish(context.Background(), asynq.NewTask(taskname.EventPublish, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	sink.err = errors.New("kafka down")
	require.Error(t, relay.HandleEventPublish(context.Background(), asynq.NewTask(taskname.EventPublish, payload)))
}

func TestOutboxSinkFollowsRedis(t *testing.T) {
	enq := &enqueuerMock{}
	require.IsType(t, NopSink{}, NewOutboxSink(OutboxParams{Enqueuer: enq}))

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })
	require.IsType(t, &TaskSink{}, NewOutboxSink(OutboxParams{Redis: client, Enqueuer: enq}))
}
