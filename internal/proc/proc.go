/**
# Copyright (c) 2024, the go-hwloc authors.  All rights reserved.
#
# Licensed under the Apache License, Version 2.0 (the "License");
# you may not use this file except in compliance with the License.
# You may obtain a copy of the License at
#
#     http://www.apache.org/licenses/LICENSE-2.0
#
# Unless required by applicable law or agreed to in writing, software
# distributed under the License is distributed on an "AS IS" BASIS,
# WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
# See the License for the specific language governing permissions and
# limitations under the License.
**/

// Package proc resolves binding targets against the proc filesystem.
package proc

import (
	"fmt"
	"sort"

	"github.com/prometheus/procfs"
)

// Source reads processes and threads from one proc filesystem mount.
type Source struct {
	fs procfs.FS
}

// NewSource opens the proc filesystem at mountPoint; pass
// procfs.DefaultMountPoint outside of tests.
func NewSource(mountPoint string) (Source, error) {
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return Source{}, fmt.Errorf("error opening procfs: %v", err)
	}
	return Source{fs: fs}, nil
}

// FindByName returns the pid of the first process whose command name matches.
func (s Source) FindByName(name string) (int, error) {
	procs, err := s.fs.AllProcs()
	if err != nil {
		return -1, fmt.Errorf("error getting list of all procs: %v", err)
	}
	for _, p := range procs {
		cmdline, err := p.CmdLine()
		if err != nil {
			return -1, fmt.Errorf("error getting cmdline: %v", err)
		}
		// Kernel threads have an empty cmdline.
		if len(cmdline) == 0 {
			continue
		}
		if cmdline[0] == name {
			return p.PID, nil
		}
	}
	return -1, fmt.Errorf("no process named %q found", name)
}

// ThreadIDs returns the kernel tids of all threads of the given process, in
// ascending order.
func (s Source) ThreadIDs(pid int) ([]int, error) {
	threads, err := s.fs.AllThreads(pid)
	if err != nil {
		return nil, fmt.Errorf("error getting threads of pid %d: %v", pid, err)
	}
	tids := make([]int, 0, len(threads))
	for _, t := range threads {
		tids = append(tids, t.PID)
	}
	sort.Ints(tids)
	return tids, nil
}
