//go:build !linux

package dbus

import (
	"net"

	"github.com/sirupsen/logrus"
)

// logPeerCredentials is a no-op outside Linux: SO_PEERCRED is a
// Linux-specific getsockopt and has no portable equivalent.
func logPeerCredentials(log logrus.FieldLogger, conn net.Conn) {}
