//go:build linux

package dbus

import (
	"net"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// logPeerCredentials reads the connecting unix-domain peer's SO_PEERCRED
// (pid, uid, gid) via getsockopt and logs them at Debug level. It is
// a no-op, not an error, for any non-unix net.Conn (e.g. a tcp: address).
func logPeerCredentials(log logrus.FieldLogger, conn net.Conn) {
	uc, ok := conn.(*net.UnixConn)
	if !ok {
		return
	}
	raw, err := uc.SyscallConn()
	if err != nil {
		return
	}
	var cred *unix.Ucred
	var credErr error
	err = raw.Control(func(fd uintptr) {
		cred, credErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})
	if err != nil || credErr != nil {
		return
	}
	log.WithFields(logrus.Fields{
		"peer_pid": cred.Pid,
		"peer_uid": cred.Uid,
		"peer_gid": cred.Gid,
	}).Debug("dbus: peer credentials")
}
