package room

import (
	"slices"
	"time"
)

// chatLog keeps the newest messages of a room, oldest first.
// Ids grow monotonically so the buffer stays sorted by id.
type chatLog struct {
	messages  []ChatMessage
	retention int
	lastId    int64
}

func newChatLog(retention int) *chatLog {
	return &chatLog{
		messages:  make([]ChatMessage, 0, retention),
		retention: retention,
	}
}

func (c *chatLog) append(authorId, authorName, text string, now time.Time) ChatMessage {
	c.lastId++
	msg := ChatMessage{
		Id:         c.lastId,
		AuthorId:   authorId,
		AuthorName: authorName,
		Text:       text,
		Timestamp:  now.UnixMilli(),
	}

	c.messages = append(c.messages, msg)
	if over := len(c.messages) - c.retention; over > 0 {
		n := copy(c.messages, c.messages[over:])
		c.messages = c.messages[:n]
	}

	return msg
}

func (c *chatLog) index(id int64) (int, bool) {
	return slices.BinarySearchFunc(c.messages, id, func(m ChatMessage, id int64) int {
		switch {
		case m.Id < id:
			return -1
		case m.Id > id:
			return 1
		default:
			return 0
		}
	})
}

func (c *chatLog) find(id int64) (ChatMessage, bool) {
	i, ok := c.index(id)
	if !ok {
		return ChatMessage{}, false
	}

	return c.messages[i], true
}

func (c *chatLog) remove(id int64) bool {
	i, ok := c.index(id)
	if !ok {
		return false
	}

	c.messages = slices.Delete(c.messages, i, i+1)
	return true
}

// latest returns up to n newest messages, oldest first.
func (c *chatLog) latest(n int) ([]ChatMessage, bool) {
	return c.page(len(c.messages), n)
}

// before returns up to n messages strictly older than ts (unix ms), oldest first.
func (c *chatLog) before(ts int64, n int) ([]ChatMessage, bool) {
	end, _ := slices.BinarySearchFunc(c.messages, ts, func(m ChatMessage, ts int64) int {
		if m.Timestamp < ts {
			return -1
		}
		return 1
	})

	return c.page(end, n)
}

// beforeId returns up to n messages with an id below id, oldest first.
func (c *chatLog) beforeId(id int64, n int) ([]ChatMessage, bool) {
	end, _ := c.index(id)
	return c.page(end, n)
}

func (c *chatLog) page(end, n int) ([]ChatMessage, bool) {
	start := max(end-n, 0)
	return slices.Clone(c.messages[start:end]), start > 0
}

func (c *chatLog) len() int {
	return len(c.messages)
}
