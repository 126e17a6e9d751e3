package library

import (
	"time"

	"github.com/rs/zerolog"
)

// Notifications posts and manages per-user messages.
type Notifications struct {
	store Store
	now   func() time.Time
	log   zerolog.Logger
}

func NewNotifications(store Store, now func() time.Time, logger zerolog.Logger) *Notifications {
	return &Notifications{
		store: store,
		now:   now,
		log:   logger.With().Str("component", "notifications").Logger(),
	}
}

// Notify creates an unread notification for userID.
func (n *Notifications) Notify(userID, message string) (Notification, error) {
	note := Notification{UserID: userID, Message: message, Timestamp: n.now()}
	if err := validate("notification", note); err != nil {
		return Notification{}, err
	}
	exists, err := n.store.UserExists(userID)
	if err != nil {
		return Notification{}, err
	}
	if !exists {
		return Notification{}, notFound("user", userID)
	}
	if err := n.store.SaveNotification(&note); err != nil {
		return Notification{}, err
	}
	n.log.Debug().Int64("notification_id", note.ID).Str("user_id", userID).Msg("notification posted")
	return note, nil
}

// List returns the user's notifications, newest first.
func (n *Notifications) List(userID string, unreadOnly bool) ([]Notification, error) {
	all, err := n.store.ListNotificationsByUser(userID)
	if err != nil {
		return nil, err
	}
	if !unreadOnly {
		return all, nil
	}
	unread := make([]Notification, 0, len(all))
	for _, note := range all {
		if !note.IsRead {
			unread = append(unread, note)
		}
	}
	return unread, nil
}

func (n *Notifications) UnreadCount(userID string) (int, error) {
	unread, err := n.List(userID, true)
	return len(unread), err
}

func (n *Notifications) MarkRead(id int64) error {
	note, ok, err := n.store.GetNotification(id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("notification", id)
	}
	if note.IsRead {
		return nil
	}
	note.IsRead = true
	return n.store.SaveNotification(&note)
}

func (n *Notifications) MarkAllRead(userID string) error {
	return n.store.MarkAllNotificationsRead(userID)
}

func (n *Notifications) Delete(id int64) error {
	_, ok, err := n.store.GetNotification(id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("notification", id)
	}
	return n.store.DeleteNotification(id)
}
