package scanner

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privya-inc/privya-engine/pkg/models"
)

func event(jobID uuid.UUID, progress int) models.ScanEvent {
	return models.ScanEvent{
		JobID:     jobID,
		Status:    models.ScanSampling,
		Progress:  progress,
		Timestamp: time.Now(),
	}
}

func TestHubDeliversInOrder(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	jobID := uuid.New()

	sub := hub.Subscribe(nil)
	defer hub.Unsubscribe(sub)

	for i := 0; i < 10; i++ {
		hub.Publish(event(jobID, i))
	}

	for i := 0; i < 10; i++ {
		select {
		case e := <-sub.Events():
			assert.Equal(t, i, e.Progress)
		case <-time.After(time.Second):
			t.Fatalf("missing event %d", i)
		}
	}
}

func TestHubMultipleSubscribersEachReceiveAll(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	jobID := uuid.New()

	a := hub.Subscribe(nil)
	b := hub.Subscribe(nil)
	defer hub.Unsubscribe(a)
	defer hub.Unsubscribe(b)

	for i := 0; i < 5; i++ {
		hub.Publish(event(jobID, i))
	}
	for _, sub := range []*Subscription{a, b} {
		for i := 0; i < 5; i++ {
			select {
			case e := <-sub.Events():
				assert.Equal(t, i, e.Progress)
			case <-time.After(time.Second):
				t.Fatal("subscriber starved")
			}
		}
	}
}

func TestHubJobFilter(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	mine, other := uuid.New(), uuid.New()

	sub := hub.Subscribe(&mine)
	defer hub.Unsubscribe(sub)

	hub.Publish(event(other, 1))
	hub.Publish(event(mine, 2))

	select {
	case e := <-sub.Events():
		assert.Equal(t, mine, e.JobID)
	case <-time.After(time.Second):
		t.Fatal("filtered subscriber received nothing")
	}
	select {
	case e, ok := <-sub.Events():
		if ok {
			t.Fatalf("unexpected extra event: %+v", e)
		}
	default:
	}
}

func TestHubDropOldestOnOverflow(t *testing.T) {
	hub := NewHub()
	defer hub.Close()
	jobID := uuid.New()

	sub := hub.Subscribe(nil)
	defer hub.Unsubscribe(sub)

	// Publish past the buffer without draining; the newest events survive.
	total := defaultSubscriberBuffer + 10
	for i := 0; i < total; i++ {
		hub.Publish(event(jobID, i))
	}

	received := make([]int, 0, defaultSubscriberBuffer)
drain:
	for {
		select {
		case e := <-sub.Events():
			received = append(received, e.Progress)
		default:
			break drain
		}
	}

	require.Len(t, received, defaultSubscriberBuffer)
	assert.Equal(t, total-1, received[len(received)-1], "newest event must survive the overflow")
	for i := 1; i < len(received); i++ {
		assert.Greater(t, received[i], received[i-1], "surviving events stay ordered")
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	defer hub.Close()

	sub := hub.Subscribe(nil)
	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub) // idempotent

	_, ok := <-sub.Events()
	assert.False(t, ok)
}

func TestHubCloseStopsDelivery(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(nil)

	hub.Close()
	hub.Publish(event(uuid.New(), 1))

	_, ok := <-sub.Events()
	assert.False(t, ok)
}
