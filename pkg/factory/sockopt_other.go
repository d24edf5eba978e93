//go:build !unix

package factory

import "syscall"

// reuseAddrControl is a no-op where SO_REUSEADDR is not set through x/sys/unix.
func reuseAddrControl(network, address string, c syscall.RawConn) error {
	return nil
}
