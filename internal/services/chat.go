package services

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/65160020/swapup-backend/internal/database"
	"github.com/65160020/swapup-backend/internal/models"
	"github.com/65160020/swapup-backend/internal/realtime"
	apperrors "github.com/65160020/swapup-backend/pkg/errors"
	"gorm.io/gorm"
)

var validKinds = map[string]bool{
	models.KindText:  true,
	models.KindImage: true,
	models.KindVideo: true,
	models.KindLink:  true,
	models.KindReply: true,
}

// ReconcileMessages returns the session's ordered log from the viewer's
// side, marking the partner's unread messages as read along the way. It is
// idempotent: a second call with no intervening writes returns the same
// sequence and performs no writes at all. An optional search term narrows
// the returned rows without affecting the mark-read pass.
func ReconcileMessages(sessionID, viewerID, search string) ([]models.Message, error) {
	if _, err := GetSession(sessionID, viewerID); err != nil {
		return nil, err
	}

	// The unseen check runs over the whole log, never the filtered view: a
	// search that matches nothing must not suppress the read sweep.
	messages, err := fetchMessages(sessionID, "")
	if err != nil {
		return nil, err
	}

	unseen := false
	for _, m := range messages {
		if !m.IsRead && m.SenderID != viewerID {
			unseen = true
			break
		}
	}

	if unseen {
		if _, err := MarkSessionRead(sessionID, viewerID); err != nil {
			return nil, err
		}
	}

	if unseen || search != "" {
		// Re-fetch for authoritative read flags and the caller's filter.
		if messages, err = fetchMessages(sessionID, search); err != nil {
			return nil, err
		}
	}

	return messages, nil
}

func fetchMessages(sessionID, search string) ([]models.Message, error) {
	q := database.DB.Where("session_id = ?", sessionID)
	if search != "" {
		q = q.Where("content LIKE ?", "%"+search+"%")
	}

	var messages []models.Message
	if err := q.Order("created_at asc, id asc").Find(&messages).Error; err != nil {
		return nil, storeErr("fetch messages", err)
	}
	return messages, nil
}

// MarkSessionRead is the server-side aggregate: flips every unread message
// from the other party in one statement. Monotonic — nothing ever sets
// is_read back to false.
func MarkSessionRead(sessionID, viewerID string) (int64, error) {
	res := database.DB.Model(&models.Message{}).
		Where("session_id = ? AND sender_id <> ? AND is_read = ?", sessionID, viewerID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		})
	if res.Error != nil {
		return 0, storeErr("mark read", res.Error)
	}

	if res.RowsAffected > 0 {
		// Let the sender's sync engine pick up the new read flags.
		publishEvent(realtime.SessionTopic(sessionID), models.MessageEvent{Op: models.MessagesRead})
	}
	return res.RowsAffected, nil
}

// SendMessage appends to the session log. Only active sessions accept
// sends; ended/closed sessions reject with the authoritative state
// attached and the log untouched. After the insert the sender updates the
// session's denormalized preview — by design this is the sender's write,
// not the sync engine's.
func SendMessage(sessionID, senderID, kind, content string) (*models.Message, error) {
	session, err := GetSession(sessionID, senderID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionActive {
		return nil, apperrors.StateConflict("Session no longer accepts messages", session.Status)
	}

	if !validKinds[kind] {
		return nil, apperrors.Validation("Unknown message kind")
	}
	if (kind == models.KindText || kind == models.KindReply) && strings.TrimSpace(content) == "" {
		return nil, apperrors.Validation("Message content cannot be empty")
	}

	msg := models.Message{
		SessionID: sessionID,
		SenderID:  senderID,
		Kind:      kind,
		Content:   content,
	}
	if err := database.DB.Create(&msg).Error; err != nil {
		return nil, storeErr("insert message", err)
	}

	now := msg.CreatedAt
	err = database.DB.Model(&models.Session{}).
		Where("id = ?", sessionID).
		Updates(map[string]interface{}{
			"last_message_preview": previewFor(kind, content),
			"last_message_at":      now,
		}).Error
	if err != nil {
		return nil, storeErr("update session preview", err)
	}

	publishEvent(realtime.SessionTopic(sessionID), models.MessageEvent{
		Op:      models.MessageCreated,
		Message: &msg,
	})
	return &msg, nil
}

// previewFor renders the session-list preview: raw text for text messages,
// a bracketed kind tag for everything else.
func previewFor(kind, content string) string {
	if kind == models.KindText {
		return content
	}
	return "[" + strings.ToUpper(kind[:1]) + kind[1:] + "]"
}

// ReplyToMessage sends a kind=reply message whose content embeds a frozen
// snapshot of the target at reply time. Deleting the target later does not
// touch the snapshot.
func ReplyToMessage(sessionID, senderID, targetID, text string) (*models.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.Validation("Message content cannot be empty")
	}

	var target models.Message
	err := database.DB.First(&target, "id = ? AND session_id = ?", targetID, sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Message to reply to not found")
	}
	if err != nil {
		return nil, storeErr("load reply target", err)
	}

	envelope := models.ReplyEnvelope{
		Text: text,
		ReplyTo: models.ReplyTarget{
			ID:       target.ID,
			Content:  target.Content,
			SenderID: target.SenderID,
		},
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, apperrors.Internal("Failed to encode reply")
	}

	return SendMessage(sessionID, senderID, models.KindReply, string(payload))
}

// ToggleReaction flips one emoji on the message's reaction map: present
// keys are removed, absent keys are set to 1. The toggle is room-level —
// either participant can clear a reaction the other one set. Persisted
// immediately, empty maps as NULL.
func ToggleReaction(messageID, userID, emoji string) (*models.Message, error) {
	if emoji == "" {
		return nil, apperrors.Validation("Emoji is required")
	}

	var msg models.Message
	err := database.DB.First(&msg, "id = ?", messageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Message not found")
	}
	if err != nil {
		return nil, storeErr("load message", err)
	}

	if _, err := GetSession(msg.SessionID, userID); err != nil {
		return nil, err
	}

	reactions := msg.Reactions
	if reactions == nil {
		reactions = map[string]interface{}{}
	}
	if _, on := reactions[emoji]; on {
		delete(reactions, emoji)
	} else {
		reactions[emoji] = 1
	}
	if len(reactions) == 0 {
		reactions = nil
	}
	msg.Reactions = reactions

	err = database.DB.Model(&models.Message{}).
		Where("id = ?", messageID).
		Update("reactions", reactions).Error
	if err != nil {
		return nil, storeErr("update reactions", err)
	}

	publishEvent(realtime.SessionTopic(msg.SessionID), models.MessageEvent{
		Op:      models.MessageUpdated,
		Message: &msg,
	})
	return &msg, nil
}

// DeleteMessage hard-deletes one message. Only the sender may delete; no
// tombstone is left behind.
func DeleteMessage(messageID, requesterID string) error {
	var msg models.Message
	err := database.DB.First(&msg, "id = ?", messageID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound("Message not found")
	}
	if err != nil {
		return storeErr("load message", err)
	}

	if msg.SenderID != requesterID {
		return apperrors.Forbidden("Only the sender can delete a message")
	}

	if err := database.DB.Delete(&models.Message{}, "id = ?", messageID).Error; err != nil {
		return storeErr("delete message", err)
	}

	publishEvent(realtime.SessionTopic(msg.SessionID), models.MessageEvent{
		Op:      models.MessageDeleted,
		Message: &models.Message{ID: msg.ID, SessionID: msg.SessionID},
	})
	return nil
}
