// Package dbus is a client for the org.freedesktop.Notifications D-Bus
// interface. It posts desktop notifications through whichever notification
// daemon owns the name on the session bus.
package dbus
