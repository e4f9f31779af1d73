package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/chakula/core"
	"github.com/trezcool/chakula/core/notification"
)

type notificationRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Message   string    `db:"message"`
	Read      bool      `db:"is_read"`
	CreatedAt time.Time `db:"created_at"`
}

func (r notificationRow) notification() notification.Notification {
	return notification.Notification{
		ID:        r.ID,
		UserID:    r.UserID,
		Message:   r.Message,
		Read:      r.Read,
		CreatedAt: utc(r.CreatedAt),
	}
}

type notificationRepository struct {
	repository
}

var _ notification.Repository = (*notificationRepository)(nil)

func NewNotificationRepository(exec core.DBExecutor) *notificationRepository {
	return &notificationRepository{repository{exec: exec}}
}

func (repo notificationRepository) CreateNotification(ctx context.Context, n notification.Notification, exec ...core.DBExecutor) (notification.Notification, error) {
	n.ID = newID()
	n.CreatedAt = utc(n.CreatedAt)
	_, err := repo.execute(ctx, repo.getExec(exec),
		"INSERT INTO notifications (id, user_id, message, is_read, created_at) VALUES (?, ?, ?, ?, ?)",
		n.ID, n.UserID, n.Message, n.Read, n.CreatedAt)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return n, nil
}

func (repo notificationRepository) GetNotification(ctx context.Context, id string, exec ...core.DBExecutor) (notification.Notification, error) {
	if !validID(id) {
		return notification.Notification{}, notification.ErrNotFound
	}
	var r notificationRow
	err := repo.get(ctx, repo.getExec(exec), &r,
		"SELECT id, user_id, message, is_read, created_at FROM notifications WHERE id = ?", id)
	if err != nil {
		return notification.Notification{}, trapNoRowsErr(err, notification.ErrNotFound, "finding notification")
	}
	return r.notification(), nil
}

func (repo notificationRepository) QueryNotifications(ctx context.Context, userID string, unreadOnly bool, exec ...core.DBExecutor) ([]notification.Notification, error) {
	var w where
	w.add("user_id = ?", userID)
	if unreadOnly {
		w.add("is_read = ?", false)
	}
	var rows []notificationRow
	err := repo.selectAll(ctx, repo.getExec(exec), &rows,
		"SELECT id, user_id, message, is_read, created_at FROM notifications"+w.String()+" ORDER BY created_at DESC", w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	notifs := make([]notification.Notification, 0, len(rows))
	for _, r := range rows {
		notifs = append(notifs, r.notification())
	}
	return notifs, nil
}

func (repo notificationRepository) CountUnread(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error) {
	var n int
	err := repo.get(ctx, repo.getExec(exec), &n,
		"SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = ?", userID, false)
	return n, errors.Wrap(err, "counting unread notifications")
}

// MarkRead marks the given notifications of userID as read, or all of them when ids is nil.
func (repo notificationRepository) MarkRead(ctx context.Context, userID string, ids []string, exec ...core.DBExecutor) (int, error) {
	var w where
	w.add("user_id = ?", userID)
	w.add("is_read = ?", false)
	if ids != nil {
		if len(ids) == 0 {
			return 0, nil
		}
		w.add("id IN (?)", ids)
	}
	args := append([]interface{}{true}, w.args...)
	n, err := repo.executeIn(ctx, repo.getExec(exec), "UPDATE notifications SET is_read = ?"+w.String(), args...)
	return n, errors.Wrap(err, "marking notifications read")
}

func (repo notificationRepository) DeleteNotification(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := repo.execute(ctx, repo.getExec(exec), "DELETE FROM notifications WHERE id = ?", id); err != nil {
		return errors.Wrap(err, "deleting notification")
	}
	return nil
}
