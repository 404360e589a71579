package session

import (
	"strings"

	"silverlink/internal/assistant"
	"silverlink/internal/models"
	"silverlink/internal/observability"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Send appends text from the current member to the conversation with the
// selected partner and schedules the partner's auto-reply. It does nothing
// unless the chat screen is showing; blank text is ignored.
func (s *Session) Send(text string) (models.ChatMessage, bool) {
	s.mu.Lock()
	defer s.unlock()
	if s.profile == nil || s.partner == nil || s.effectiveScreenLocked() != models.ScreenChat {
		return models.ChatMessage{}, false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return models.ChatMessage{}, false
	}

	partnerID := s.partner.ID
	msg := s.appendMessageLocked(partnerID, s.profile.ID, text)
	observability.ChatMessages.WithLabelValues("member").Inc()
	s.scheduleReplyLocked(partnerID)
	return msg, true
}

func (s *Session) appendMessageLocked(partnerID, senderID, text string) models.ChatMessage {
	ts := s.clock.Now().UnixMilli()
	conv := s.chats[partnerID]
	if n := len(conv); n > 0 && conv[n-1].Timestamp > ts {
		ts = conv[n-1].Timestamp
	}
	msg := models.ChatMessage{
		ID:        newMessageID(),
		SenderID:  senderID,
		Text:      text,
		Timestamp: ts,
	}
	s.chats[partnerID] = append(conv, msg)
	s.emit(EventChatMessage, map[string]interface{}{"partnerId": partnerID, "message": msg})
	return msg
}

func (s *Session) scheduleReplyLocked(partnerID string) {
	s.replySeq++
	seq := s.replySeq
	epoch := s.epoch
	pending, ok := s.replies[partnerID]
	if !ok {
		pending = make(map[uint64]clockwork.Timer)
		s.replies[partnerID] = pending
	}
	pending[seq] = s.clock.AfterFunc(s.autoReplyDelay, func() {
		s.deliverReply(partnerID, seq, epoch)
	})
}

func (s *Session) deliverReply(partnerID string, seq, epoch uint64) {
	s.mu.Lock()
	defer s.unlock()
	pending := s.replies[partnerID]
	if _, ok := pending[seq]; !ok || s.epoch != epoch || s.closed {
		observability.StaleResults.WithLabelValues("auto_reply").Inc()
		return
	}
	delete(pending, seq)
	if len(pending) == 0 {
		delete(s.replies, partnerID)
	}
	s.appendMessageLocked(partnerID, partnerID, s.autoReplyText)
	observability.ChatMessages.WithLabelValues("auto_reply").Inc()
}

func (s *Session) cancelRepliesLocked(partnerID string) {
	for _, t := range s.replies[partnerID] {
		t.Stop()
	}
	delete(s.replies, partnerID)
}

func (s *Session) cancelAllRepliesLocked() {
	for partnerID := range s.replies {
		s.cancelRepliesLocked(partnerID)
	}
}

// PendingReplies returns how many auto-replies are scheduled.
func (s *Session) PendingReplies() int {
	s.mu.Lock()
	defer s.unlock()
	n := 0
	for _, pending := range s.replies {
		n += len(pending)
	}
	return n
}

// History returns the conversation with partnerID in send order.
func (s *Session) History(partnerID string) []models.ChatMessage {
	s.mu.Lock()
	defer s.unlock()
	conv := s.chats[partnerID]
	out := make([]models.ChatMessage, len(conv))
	copy(out, conv)
	return out
}

// Icebreakers returns conversation openers for the selected partner.
func (s *Session) Icebreakers() []string {
	partner := s.Partner()
	if partner == nil {
		return []string{}
	}
	return assistant.Icebreakers(*partner)
}

func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
