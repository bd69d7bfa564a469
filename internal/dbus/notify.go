package dbus

import (
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

// Notifier sends desktop notifications.
type Notifier interface {
	Notify(n *Notification) (uint32, error)
}

var _ Notifier = (*NotificationClient)(nil)

// NotificationClient sends notifications to the desktop notification daemon.
type NotificationClient struct {
	conn   *dbus.Conn
	logger *slog.Logger
}

// NewNotificationClient creates a client on conn. A nil conn connects to the
// session bus.
func NewNotificationClient(conn *dbus.Conn, logger *slog.Logger) (*NotificationClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if conn == nil {
		var err error
		conn, err = dbus.SessionBus()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to session bus: %w", err)
		}
	}
	return &NotificationClient{conn: conn, logger: logger}, nil
}

// Notify calls org.freedesktop.Notifications.Notify and returns the
// notification ID assigned by the daemon.
func (c *NotificationClient) Notify(n *Notification) (uint32, error) {
	actions := n.Actions
	if actions == nil {
		actions = []string{}
	}
	hints := n.Hints
	if hints == nil {
		hints = map[string]dbus.Variant{}
	}

	obj := c.conn.Object(NotificationsBusName, NotificationsPath)
	call := obj.Call(NotificationsInterface+".Notify", 0,
		n.AppName,
		n.ReplacesID,
		n.AppIcon,
		n.Summary,
		n.Body,
		actions,
		hints,
		n.ExpireTimeout,
	)
	if call.Err != nil {
		return 0, fmt.Errorf("failed to send notification: %w", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("failed to read notification id: %w", err)
	}
	c.logger.Debug("sent notification", "id", id, "summary", n.Summary)
	return id, nil
}
