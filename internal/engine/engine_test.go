package engine

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/mqtt-bench/internal/model"
	"github.com/daryltucker/mqtt-bench/internal/transport"
)

func TestGenerateMessages(t *testing.T) {
	msgs := GenerateMessages(3, 10, 1, true, "bench")
	require.Len(t, msgs, 3)

	for i, m := range msgs {
		assert.Len(t, m.Payload, 10)
		assert.Equal(t, byte(1), m.QoS)
		assert.True(t, m.Retain)
		assert.Equal(t, make([]byte, 10), m.Payload)
		if i > 0 {
			assert.Same(t, &msgs[0].Payload[0], &m.Payload[0], "payload must be shared")
		}
	}
	assert.Equal(t, "bench/1", msgs[0].Topic)
	assert.Equal(t, "bench/3", msgs[2].Topic)
}

func TestGenerateMessagesEdges(t *testing.T) {
	assert.Nil(t, GenerateMessages(0, 10, 0, false, "x"))

	msgs := GenerateMessages(1, 0, 0, false, "")
	require.Len(t, msgs, 1)
	assert.Equal(t, DefaultTopicPrefix+"/1", msgs[0].Topic)
	assert.Empty(t, msgs[0].Payload)
}

func TestBuildPool(t *testing.T) {
	b := &fakeBroker{}
	pool, err := BuildPool(25, transport.Options{Host: "localhost", Port: 1883}, b)
	require.NoError(t, err)
	require.Len(t, pool, 25)

	seen := map[string]bool{}
	for _, vc := range pool {
		assert.NotEmpty(t, vc.ID)
		assert.Equal(t, vc.ID, vc.Client.ID())
		assert.False(t, vc.Connected())
		assert.False(t, seen[vc.ID], "duplicate id %s", vc.ID)
		seen[vc.ID] = true
	}
	assert.Zero(t, b.count("connect"), "pool creation must not touch the network")
}

func TestBuildPoolErrors(t *testing.T) {
	_, err := BuildPool(-1, transport.Options{}, &fakeBroker{})
	require.Error(t, err)

	boom := errors.New("boom")
	_, err = BuildPool(2, transport.Options{}, &fakeBroker{newError: boom})
	require.ErrorIs(t, err, boom)

	pool, err := BuildPool(0, transport.Options{}, &fakeBroker{})
	require.NoError(t, err)
	assert.Empty(t, pool)
}

type boundaryLog struct {
	mu   sync.Mutex
	seen []int
}

func (l *boundaryLog) report(p int) {
	l.mu.Lock()
	l.seen = append(l.seen, p)
	l.mu.Unlock()
}

var allBoundaries = []int{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

func TestTrackerSequential(t *testing.T) {
	log := &boundaryLog{}
	tr := NewTracker(20, log.report)
	tr.Start()
	for i := 0; i < 20; i++ {
		tr.Increment()
	}
	tr.Finish()

	assert.Equal(t, allBoundaries, log.seen)
	assert.Equal(t, 20, tr.Count())
}

func TestTrackerUnevenTotal(t *testing.T) {
	log := &boundaryLog{}
	tr := NewTracker(3, log.report)
	tr.Start()
	tr.Increment()
	assert.Equal(t, []int{0, 10, 20, 30}, log.seen)
	tr.Increment()
	tr.Increment()
	assert.Equal(t, allBoundaries, log.seen)
}

func TestTrackerConcurrentExactlyOnce(t *testing.T) {
	const workers, each = 50, 40
	log := &boundaryLog{}
	tr := NewTracker(workers*each, log.report)
	tr.Start()

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < each; i++ {
				if rng.Intn(4) == 0 {
					time.Sleep(time.Duration(rng.Intn(200)) * time.Microsecond)
				}
				tr.Increment()
			}
		}(int64(w))
	}
	wg.Wait()
	tr.Finish()

	assert.Equal(t, allBoundaries, log.seen)
	assert.Equal(t, workers*each, tr.Count())
}

func TestTrackerFinishFillsGaps(t *testing.T) {
	log := &boundaryLog{}
	tr := NewTracker(10, log.report)
	tr.Start()
	tr.Increment()
	tr.Finish()
	tr.Finish()
	assert.Equal(t, allBoundaries, log.seen)
}

func TestTrackerZeroTotal(t *testing.T) {
	log := &boundaryLog{}
	tr := NewTracker(0, log.report)
	tr.Start()
	tr.Finish()
	assert.Equal(t, []int{0, 100}, log.seen)

	assert.NotPanics(t, func() {
		nt := NewTracker(5, nil)
		nt.Start()
		nt.Increment()
		nt.Finish()
	})
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0.000 B"},
		{60, "60.000 B"},
		{1023, "1023.000 B"},
		{1024, "1.000 KB"},
		{1572864, "1.500 MB"},
		{1 << 30, "1.000 GB"},
		{1 << 40, "1.000 TB"},
		{1 << 50, "1024.000 TB"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatBytes(tt.n))
		})
	}
}

func TestThroughput(t *testing.T) {
	assert.Equal(t, 0.0, Throughput(100, 0))
	assert.InDelta(t, 50.0, Throughput(100, 2*time.Second), 1e-9)
}

func outcomes(clients, messages int, fail func(c, m int) bool) [][]model.PublishOutcome {
	out := make([][]model.PublishOutcome, clients)
	for c := range out {
		for m := 0; m < messages; m++ {
			if fail != nil && fail(c, m) {
				out[c] = append(out[c], model.Failure(model.FailureTimeout, "slow"))
				continue
			}
			out[c] = append(out[c], model.Success())
		}
	}
	return out
}

func scenario(fail func(c, m int) bool) AggregateInput {
	start := time.Unix(1700000000, 0)
	return AggregateInput{
		ClientCount:  2,
		MessageCount: 3,
		MessageSize:  10,
		Outcomes:     outcomes(2, 3, fail),
		Connect:      model.PhaseTiming{Phase: model.PhaseConnect, Start: start, End: start.Add(100 * time.Millisecond)},
		Publish:      model.PhaseTiming{Phase: model.PhasePublish, Start: start, End: start.Add(2 * time.Second)},
		Disconnect:   model.PhaseTiming{Phase: model.PhaseDisconnect, Start: start, End: start.Add(50 * time.Millisecond)},
	}
}

func TestAggregateAllSucceed(t *testing.T) {
	rep, err := Aggregate(scenario(nil))
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Clients)
	assert.Equal(t, 6, rep.MessagesSent)
	assert.Zero(t, rep.Failed)
	assert.Equal(t, 1.0, rep.SuccessRate)
	assert.Equal(t, 0.0, rep.LossRate)
	assert.Equal(t, int64(60), rep.BytesSent)
	assert.Equal(t, "60.000 B", rep.DataSent)
	assert.InDelta(t, 3.0, rep.Throughput, 1e-9)
	assert.Equal(t, 2*time.Second, rep.PublishDuration)
	assert.Equal(t, 100*time.Millisecond, rep.ConnectDuration)
	assert.Equal(t, 50*time.Millisecond, rep.DisconnectDuration)
	assert.Nil(t, rep.FailuresByCode)
}

func TestAggregateSomeFail(t *testing.T) {
	rep, err := Aggregate(scenario(func(c, m int) bool { return c == 1 && m < 2 }))
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Failed)
	assert.InDelta(t, 1.0/3.0, rep.LossRate, 1e-9)
	assert.InDelta(t, 2.0/3.0, rep.SuccessRate, 1e-9)
	assert.Equal(t, map[model.FailureCode]int{model.FailureTimeout: 2}, rep.FailuresByCode)
	assert.Equal(t, "60.000 B", rep.DataSent, "bytes count attempted messages")
}

func TestAggregateIsPure(t *testing.T) {
	in := scenario(func(c, m int) bool { return m == 0 })
	a, err := Aggregate(in)
	require.NoError(t, err)
	b, err := Aggregate(in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAggregateNoMessages(t *testing.T) {
	rep, err := Aggregate(AggregateInput{ClientCount: 4, MessageCount: 0, MessageSize: 10, Outcomes: make([][]model.PublishOutcome, 4)})
	require.NoError(t, err)
	assert.Equal(t, 0.0, rep.LossRate)
	assert.Equal(t, 1.0, rep.SuccessRate)
	assert.Equal(t, 0.0, rep.Throughput)
	assert.Equal(t, "0.000 B", rep.DataSent)
}

func TestAggregateMismatch(t *testing.T) {
	in := scenario(nil)
	in.Outcomes[0] = in.Outcomes[0][:2]
	_, err := Aggregate(in)
	require.ErrorIs(t, err, ErrOutcomeMismatch)
}

func TestRunPhaseTiming(t *testing.T) {
	pool, err := BuildPool(5, transport.Options{}, &fakeBroker{})
	require.NoError(t, err)

	var mu sync.Mutex
	var finished []time.Time
	timing, err := RunPhase(context.Background(), model.PhaseConnect, pool, func(ctx context.Context, vc *VirtualClient) error {
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		finished = append(finished, time.Now())
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	require.Len(t, finished, 5)

	assert.Equal(t, model.PhaseConnect, timing.Phase)
	sort.Slice(finished, func(i, j int) bool { return finished[i].Before(finished[j]) })
	assert.False(t, timing.End.Before(finished[4]), "phase must end after the last worker")
	assert.GreaterOrEqual(t, timing.Duration(), 10*time.Millisecond)
}

func TestRunPhaseFatalCancelsOthers(t *testing.T) {
	pool, err := BuildPool(4, transport.Options{}, &fakeBroker{})
	require.NoError(t, err)

	_, err = RunPhase(context.Background(), model.PhasePublish, pool, func(ctx context.Context, vc *VirtualClient) error {
		if vc == pool[0] {
			return errFakeFatal
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(5 * time.Second):
			return errors.New("not cancelled")
		}
	})
	require.ErrorIs(t, err, errFakeFatal)
	assert.Contains(t, err.Error(), "publish phase aborted")
}
