package procpool

import (
	"os"

	"golang.org/x/sys/unix"
)

// Selectable is the type-erased view of a Handle that the readiness
// multiplexer needs: enough to classify it as ready or waiting without
// ever reading its result (component C6, spec §4.5).
type Selectable interface {
	HandleMeta
	pollFD() (fd uintptr, pollable bool)
}

// SelectResult is the outcome of one Select call.
type SelectResult struct {
	// Readys are the handles whose channel has started delivering a
	// response, or that were cancelled.
	Readys []Selectable
	// Waiters are every other handle from the input set.
	Waiters []Selectable
	// ReadyFDs are the entries of extraFDs that became readable.
	ReadyFDs []*os.File
}

// Select partitions handles into ready and waiting, and reports which of
// extraFDs became readable, blocking until at least one fd in the
// combined set is ready (spec §4.5). It never reads response bytes itself
// — only readiness — preserving each handle's single-consumer discipline.
//
// A force-quit worker's channel reports ready at end-of-file (the
// subsequent Result call surfaces the failure); cancelled handles are
// always classified ready so a scheduler drains them promptly.
func Select(handles []Selectable, extraFDs []*os.File) (SelectResult, error) {
	result := SelectResult{}

	type watched struct {
		handle Selectable
		fd     uintptr
	}

	var pollset []watched
	for _, h := range handles {
		if h.Cancelled() {
			result.Readys = append(result.Readys, h)
			continue
		}
		fd, ok := h.pollFD()
		if !ok {
			result.Readys = append(result.Readys, h)
			continue
		}
		pollset = append(pollset, watched{handle: h, fd: fd})
	}

	if len(pollset) == 0 && len(extraFDs) == 0 {
		return result, nil
	}

	pollFDs := make([]unix.PollFd, 0, len(pollset)+len(extraFDs))
	for _, w := range pollset {
		pollFDs = append(pollFDs, unix.PollFd{Fd: int32(w.fd), Events: unix.POLLIN})
	}
	for _, f := range extraFDs {
		pollFDs = append(pollFDs, unix.PollFd{Fd: int32(f.Fd()), Events: unix.POLLIN})
	}

	if err := pollBlocking(pollFDs); err != nil {
		return result, err
	}

	for i, w := range pollset {
		if pollFDs[i].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			result.Readys = append(result.Readys, w.handle)
		} else {
			result.Waiters = append(result.Waiters, w.handle)
		}
	}

	base := len(pollset)
	for i, f := range extraFDs {
		if pollFDs[base+i].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) != 0 {
			result.ReadyFDs = append(result.ReadyFDs, f)
		}
	}

	return result, nil
}

// pollBlocking retries on EINTR, which is otherwise indistinguishable from
// "nothing is ready yet" and would wrongly return zero readys.
func pollBlocking(fds []unix.PollFd) error {
	for {
		_, err := unix.Poll(fds, -1)
		if err == nil {
			return nil
		}
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

