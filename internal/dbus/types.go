package dbus

import (
	"github.com/godbus/dbus/v5"
)

const (
	// HostInterface is the deskrc host interface name.
	HostInterface = "io.github.deskrc.Host"
	// HostPath is the host object path.
	HostPath = "/io/github/deskrc/Host"
	// HostBusName is the bus name to claim.
	HostBusName = "io.github.deskrc"
)

const (
	// NotificationsInterface is the freedesktop notification interface.
	NotificationsInterface = "org.freedesktop.Notifications"
	// NotificationsPath is the freedesktop notification object path.
	NotificationsPath = "/org/freedesktop/Notifications"
	// NotificationsBusName is the bus name of the notification daemon.
	NotificationsBusName = "org.freedesktop.Notifications"
)

// Control verbs carried by the Control signal.
const (
	ControlQuit   = "quit"
	ControlReload = "reload"
)

// Urgency levels for the urgency hint.
const (
	UrgencyLow      byte = 0
	UrgencyNormal   byte = 1
	UrgencyCritical byte = 2
)

// Notification is an outgoing org.freedesktop.Notifications.Notify call.
type Notification struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string // Alternating key, label pairs
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

// Urgency extracts the urgency hint from the notification.
// Returns UrgencyNormal if not specified.
func (n *Notification) Urgency() byte {
	if v, ok := n.Hints["urgency"]; ok {
		if b, ok := v.Value().(byte); ok {
			return b
		}
	}
	return UrgencyNormal
}

// Category extracts the category hint from the notification.
// Returns empty string if not specified.
func (n *Notification) Category() string {
	if v, ok := n.Hints["category"]; ok {
		if s, ok := v.Value().(string); ok {
			return s
		}
	}
	return ""
}

// Transient returns true if the transient hint is set.
func (n *Notification) Transient() bool {
	if v, ok := n.Hints["transient"]; ok {
		if b, ok := v.Value().(bool); ok {
			return b
		}
	}
	return false
}

// Signal is a decoded signal emitted on the host interface.
type Signal struct {
	Name string // Member name without the interface, e.g. "StatusChanged"
	Body []any
}
