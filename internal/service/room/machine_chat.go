package room

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxMessageLength = 500
	maxEmojiLength   = 16
)

func (m *machine) sendMessage(now time.Time, e *effects, in sendMessageInput) error {
	text := strings.TrimSpace(in.text)
	if text == "" {
		return fmt.Errorf("%w: message is empty", ErrInvalidPayload)
	}

	if utf8.RuneCountInString(text) > maxMessageLength {
		return fmt.Errorf("%w: message exceeds %d characters", ErrInvalidPayload, maxMessageLength)
	}

	mem, err := m.participant(in.participantId)
	if err != nil {
		return err
	}

	if !mem.limiter.AllowN(now, 1) {
		return ErrRateLimited
	}

	msg := m.chat.append(mem.identity.Id, mem.identity.Name, text, now)
	e.send(m.recipients(""), EventNewMessage, msg)
	e.result = msg

	return nil
}

func (m *machine) deleteMessage(e *effects, in deleteMessageInput) error {
	if _, err := m.participant(in.participantId); err != nil {
		return err
	}

	msg, ok := m.chat.find(in.messageId)
	if !ok {
		return fmt.Errorf("%w: message %d not found", ErrInvalidPayload, in.messageId)
	}

	if !m.isHost(in.participantId) && msg.AuthorId != in.participantId {
		return fmt.Errorf("%w: only the host or the author can delete a message", ErrForbidden)
	}

	m.chat.remove(msg.Id)
	e.send(m.recipients(""), EventMessageDeleted, MessageDeletedPayload{MessageId: msg.Id})

	return nil
}

func (m *machine) loadMore(e *effects, in loadMoreInput) error {
	if _, err := m.participant(in.participantId); err != nil {
		return err
	}

	var (
		messages []ChatMessage
		hasMore  bool
	)
	switch {
	case in.beforeId > 0:
		messages, hasMore = m.chat.beforeId(in.beforeId, m.cfg.chatPageSize)
	case in.before > 0:
		messages, hasMore = m.chat.before(in.before, m.cfg.chatPageSize)
	default:
		messages, hasMore = m.chat.latest(m.cfg.chatPageSize)
	}

	page := MessagesPagePayload{
		Messages: messages,
		HasMore:  hasMore,
	}

	e.send([]string{in.participantId}, EventMessagesPage, page)
	e.result = page

	return nil
}

func (m *machine) sendReaction(now time.Time, e *effects, in sendReactionInput) error {
	emoji := strings.TrimSpace(in.emoji)
	if n := utf8.RuneCountInString(emoji); n < 1 || n > maxEmojiLength {
		return fmt.Errorf("%w: emoji must be 1 to %d characters", ErrInvalidPayload, maxEmojiLength)
	}

	mem, err := m.participant(in.participantId)
	if err != nil {
		return err
	}

	if !mem.limiter.AllowN(now, 1) {
		return ErrRateLimited
	}

	e.send(m.recipients(""), EventNewReaction, ReactionPayload{
		UserId:    mem.identity.Id,
		Name:      mem.identity.Name,
		Emoji:     emoji,
		Timestamp: now.UnixMilli(),
	})

	return nil
}
