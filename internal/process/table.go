package process

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v4/process"
)

// Process is one row of the OS process table.
type Process struct {
	PID  int32
	Name string
}

// Table lists and terminates OS processes.
type Table interface {
	List(ctx context.Context) ([]Process, error)
	Kill(ctx context.Context, pid int32) error
}

// SystemTable is the gopsutil-backed process table.
type SystemTable struct{}

// List implements Table. Processes whose name cannot be read are skipped.
func (SystemTable) List(ctx context.Context) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list processes")
	}

	out := make([]Process, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			continue
		}
		out = append(out, Process{PID: p.Pid, Name: name})
	}
	return out, nil
}

// Kill implements Table.
func (SystemTable) Kill(ctx context.Context, pid int32) error {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return errors.Wrapf(err, "find process %d", pid)
	}
	if err := p.KillWithContext(ctx); err != nil {
		return errors.Wrapf(err, "kill process %d", pid)
	}
	return nil
}
