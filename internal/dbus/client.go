package dbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
)

// D-Bus names used by the notification interface.
const (
	BusName       = "org.freedesktop.Notifications"
	ObjectPath    = "/org/freedesktop/Notifications"
	InterfaceName = "org.freedesktop.Notifications"
)

// ErrClientClosed is returned after Close.
var ErrClientClosed = errors.New("dbus client is closed")

// caller is the subset of dbus.BusObject the client uses.
type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...any) *dbus.Call
}

// Client posts notifications to the session bus notification daemon.
type Client struct {
	mu     sync.Mutex
	conn   *dbus.Conn
	obj    caller
	logger *slog.Logger
	closed bool
}

// Connect opens a private session bus connection.
func Connect(logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	return &Client{
		conn:   conn,
		obj:    conn.Object(BusName, dbus.ObjectPath(ObjectPath)),
		logger: logger,
	}, nil
}

// newClient wraps an existing object; used with a fake caller.
func newClient(obj caller, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{obj: obj, logger: logger}
}

// Notify posts a notification and returns the id assigned by the daemon.
// D-Bus method: Notify(susssasa{sv}i) -> u
func (c *Client) Notify(ctx context.Context, n *Notification) (uint32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrClientClosed
	}

	actions := n.Actions
	if actions == nil {
		actions = []string{}
	}
	hints := n.Hints
	if hints == nil {
		hints = map[string]dbus.Variant{}
	}

	call := c.obj.CallWithContext(ctx, InterfaceName+".Notify", 0,
		n.AppName, n.ReplacesID, n.AppIcon, n.Summary, n.Body, actions, hints, n.ExpireTimeout)
	if call.Err != nil {
		return 0, fmt.Errorf("notify: %w", call.Err)
	}

	var id uint32
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("notify: %w", err)
	}

	c.logger.Debug("desktop notification sent", "id", id, "summary", n.Summary, "urgency", n.Urgency())
	return id, nil
}

// CloseNotification asks the daemon to close a notification.
func (c *Client) CloseNotification(ctx context.Context, id uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}

	call := c.obj.CallWithContext(ctx, InterfaceName+".CloseNotification", 0, id)
	if call.Err != nil {
		return fmt.Errorf("close notification %d: %w", id, call.Err)
	}
	return nil
}

// ServerInformation queries the running notification daemon.
func (c *Client) ServerInformation(ctx context.Context) (ServerInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ServerInfo{}, ErrClientClosed
	}

	var info ServerInfo
	call := c.obj.CallWithContext(ctx, InterfaceName+".GetServerInformation", 0)
	if call.Err != nil {
		return info, fmt.Errorf("get server information: %w", call.Err)
	}
	if err := call.Store(&info.Name, &info.Vendor, &info.Version, &info.SpecVersion); err != nil {
		return info, fmt.Errorf("get server information: %w", err)
	}
	return info, nil
}

// Close releases the bus connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
