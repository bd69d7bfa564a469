// Package dbus bridges deskrc to a compositor over the session bus.
//
// The compositor calls methods on io.github.deskrc.Host to report input,
// output and lifecycle events; deskrc answers with signals describing the
// mutations it wants applied. Bridge implements host.Host on top of that
// protocol, Server exports it, and NotificationClient sends desktop
// notifications through org.freedesktop.Notifications.
package dbus
