package stderr

import "syscall"

// dup2 uses Dup3, the only variant available on every Linux architecture.
func dup2(oldfd, newfd int) error {
	return syscall.Dup3(oldfd, newfd, 0)
}
