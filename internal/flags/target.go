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

package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// TargetConfig selects what a binding command addresses: the current
// program by default, or a process by pid or name, or a thread by tid.
type TargetConfig struct {
	PID         int
	TID         uint64
	ProcessName string
	AllThreads  bool
}

func (t *TargetConfig) Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "pid",
			Usage:       "Operate on the process with this pid instead of the current program.",
			Destination: &t.PID,
			EnvVars:     []string{"HWLOC_BIND_PID"},
		},
		&cli.Uint64Flag{
			Name:        "tid",
			Usage:       "Operate on the thread with this kernel tid instead of the current program.",
			Destination: &t.TID,
			EnvVars:     []string{"HWLOC_BIND_TID"},
		},
		&cli.StringFlag{
			Name:        "name",
			Usage:       "Operate on the first process whose command matches this name.",
			Destination: &t.ProcessName,
			EnvVars:     []string{"HWLOC_BIND_PROCESS_NAME"},
		},
		&cli.BoolFlag{
			Name:        "all-threads",
			Usage:       "Operate on every thread of the targeted process individually.",
			Destination: &t.AllThreads,
			EnvVars:     []string{"HWLOC_BIND_ALL_THREADS"},
		},
	}
	return flags
}

// Validate rejects target combinations that cannot be served.
func (t *TargetConfig) Validate() error {
	selected := 0
	if t.PID != 0 {
		selected++
	}
	if t.TID != 0 {
		selected++
	}
	if t.ProcessName != "" {
		selected++
	}
	if selected > 1 {
		return fmt.Errorf("at most one of 'pid', 'tid' and 'name' may be given")
	}
	if t.AllThreads && t.TID != 0 {
		return fmt.Errorf("'all-threads' cannot be combined with 'tid'")
	}
	return nil
}
