package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatLogRetention(t *testing.T) {
	start := time.UnixMilli(1_000_000)
	c := newChatLog(3)

	for i := range 5 {
		c.append("u1", "Ann", "hi", start.Add(time.Duration(i)*time.Second))
	}

	require.Equal(t, 3, c.len())
	msgs, hasMore := c.latest(10)
	assert.False(t, hasMore)
	assert.Equal(t, []int64{3, 4, 5}, ids(msgs))

	_, ok := c.find(1)
	assert.False(t, ok, "trimmed message must be gone")
}

func TestChatLogPaging(t *testing.T) {
	start := time.UnixMilli(1_000_000)
	c := newChatLog(100)

	for i := range 10 {
		c.append("u1", "Ann", "hi", start.Add(time.Duration(i)*time.Second))
	}

	msgs, hasMore := c.latest(4)
	assert.True(t, hasMore)
	assert.Equal(t, []int64{7, 8, 9, 10}, ids(msgs))

	// strictly older than message 7
	msgs, hasMore = c.before(msgs[0].Timestamp, 4)
	assert.True(t, hasMore)
	assert.Equal(t, []int64{3, 4, 5, 6}, ids(msgs))

	msgs, hasMore = c.before(msgs[0].Timestamp, 4)
	assert.False(t, hasMore)
	assert.Equal(t, []int64{1, 2}, ids(msgs))

	msgs, hasMore = c.before(start.UnixMilli(), 4)
	assert.False(t, hasMore)
	assert.Empty(t, msgs)
}

func TestChatLogPagingSameMillisecond(t *testing.T) {
	now := time.UnixMilli(1_000_000)
	c := newChatLog(100)

	for range 4 {
		c.append("u1", "Ann", "hi", now)
	}

	msgs, hasMore := c.latest(2)
	assert.True(t, hasMore)
	assert.Equal(t, []int64{3, 4}, ids(msgs))

	msgs, hasMore = c.beforeId(msgs[0].Id, 2)
	assert.False(t, hasMore)
	assert.Equal(t, []int64{1, 2}, ids(msgs))

	msgs, hasMore = c.beforeId(msgs[0].Id, 2)
	assert.False(t, hasMore)
	assert.Empty(t, msgs)
}

func TestChatLogBeforeDeletedId(t *testing.T) {
	now := time.UnixMilli(1_000_000)
	c := newChatLog(100)
	for range 5 {
		c.append("u1", "Ann", "hi", now)
	}
	require.True(t, c.remove(3))

	msgs, _ := c.beforeId(3, 10)
	assert.Equal(t, []int64{1, 2}, ids(msgs))
}

func TestChatLogRemove(t *testing.T) {
	now := time.UnixMilli(1_000_000)
	c := newChatLog(10)
	c.append("u1", "Ann", "one", now)
	second := c.append("u2", "Bob", "two", now)
	c.append("u1", "Ann", "three", now)

	assert.True(t, c.remove(second.Id))
	assert.False(t, c.remove(second.Id))

	msgs, _ := c.latest(10)
	assert.Equal(t, []int64{1, 3}, ids(msgs))

	// ids are never reused
	next := c.append("u1", "Ann", "four", now)
	assert.Equal(t, int64(4), next.Id)
}

func ids(msgs []ChatMessage) []int64 {
	out := make([]int64, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Id)
	}
	return out
}
