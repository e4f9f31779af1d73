package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/chakula/core"
)

var ErrNotFound = core.NewNotFoundError("notification not found")

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification, exec ...core.DBExecutor) (Notification, error)
		GetNotification(ctx context.Context, id string, exec ...core.DBExecutor) (Notification, error)
		// QueryNotifications lists a user's notifications, newest first.
		QueryNotifications(ctx context.Context, userID string, unreadOnly bool, exec ...core.DBExecutor) ([]Notification, error)
		CountUnread(ctx context.Context, userID string, exec ...core.DBExecutor) (int, error)
		MarkRead(ctx context.Context, userID string, ids []string, exec ...core.DBExecutor) (int, error)
		DeleteNotification(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	// Publisher pushes freshly recorded notifications to connected users.
	Publisher interface {
		Publish(n Notification)
	}

	Service interface {
		core.Notifier
		List(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error)
		UnreadCount(ctx context.Context, userID string) (int, error)
		MarkRead(ctx context.Context, userID, id string) (Notification, error)
		MarkAllRead(ctx context.Context, userID string) (int, error)
		Delete(ctx context.Context, userID, id string) error
	}

	service struct {
		repo       Repository
		logger     core.Logger
		publishers []Publisher
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, logger core.Logger, publishers ...Publisher) Service {
	return &service{repo: repo, logger: logger, publishers: publishers}
}

func (svc *service) Notify(ctx context.Context, userID, message string) {
	n, err := svc.repo.CreateNotification(ctx, Notification{
		UserID:    userID,
		Message:   message,
		CreatedAt: core.Now(),
	})
	if err != nil {
		svc.logger.Error(fmt.Sprintf("recording notification: %v", err), err)
		return
	}
	for _, pub := range svc.publishers {
		pub.Publish(n)
	}
}

func (svc *service) List(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, userID, unreadOnly)
}

func (svc *service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return svc.repo.CountUnread(ctx, userID)
}

// get returns the notification only if it belongs to userID.
func (svc *service) get(ctx context.Context, userID, id string) (Notification, error) {
	n, err := svc.repo.GetNotification(ctx, id)
	if err != nil {
		return Notification{}, err
	}
	if n.UserID != userID {
		return Notification{}, ErrNotFound
	}
	return n, nil
}

func (svc *service) MarkRead(ctx context.Context, userID, id string) (Notification, error) {
	n, err := svc.get(ctx, userID, id)
	if err != nil {
		return Notification{}, err
	}
	if n.Read {
		return n, nil
	}
	if _, err = svc.repo.MarkRead(ctx, userID, []string{n.ID}); err != nil {
		return Notification{}, errors.Wrap(err, "marking notification as read")
	}
	n.Read = true
	return n, nil
}

func (svc *service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return svc.repo.MarkRead(ctx, userID, nil)
}

func (svc *service) Delete(ctx context.Context, userID, id string) error {
	n, err := svc.get(ctx, userID, id)
	if err != nil {
		return err
	}
	return svc.repo.DeleteNotification(ctx, n.ID)
}
