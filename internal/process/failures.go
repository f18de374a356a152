package process

// failureTracker counts consecutive failed kills per PID.
type failureTracker struct {
	counts map[int32]int
}

func newFailureTracker() *failureTracker {
	return &failureTracker{counts: make(map[int32]int)}
}

func (f *failureTracker) attempts(pid int32) int {
	return f.counts[pid]
}

func (f *failureTracker) fail(pid int32) int {
	f.counts[pid]++
	return f.counts[pid]
}

func (f *failureTracker) forget(pid int32) {
	delete(f.counts, pid)
}

// prune drops PIDs not present in the latest scan. PIDs are recycled by the
// OS, so a stale count would otherwise shield a new process with the same PID.
func (f *failureTracker) prune(seen map[int32]struct{}) {
	for pid := range f.counts {
		if _, ok := seen[pid]; !ok {
			delete(f.counts, pid)
		}
	}
}

func (f *failureTracker) size() int {
	return len(f.counts)
}
