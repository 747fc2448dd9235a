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

	"github.com/hwtopo/go-hwloc/pkg/hwloc"
)

// BindingConfig holds the command line spellings of the CPU binding flags.
type BindingConfig struct {
	Process        bool
	Thread         bool
	SingleThreaded bool
	Strict         bool
	NoMemBind      bool
}

func (b *BindingConfig) Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "process",
			Usage:       "Bind all threads of the target process.",
			Destination: &b.Process,
		},
		&cli.BoolFlag{
			Name:        "thread",
			Usage:       "Bind only the current thread.",
			Destination: &b.Thread,
		},
		&cli.BoolFlag{
			Name:        "single-threaded",
			Usage:       "Assert that the current process has a single thread, so the most portable entry point can be used.",
			Destination: &b.SingleThreaded,
		},
		&cli.BoolFlag{
			Name:        "strict",
			Usage:       "Fail rather than bind approximately.",
			Destination: &b.Strict,
		},
		&cli.BoolFlag{
			Name:        "no-membind",
			Usage:       "Avoid OS calls that would bind memory as a side effect.",
			Destination: &b.NoMemBind,
		},
	}
	return flags
}

// CPUBindingFlags composes the selected hwloc CPU binding flags.
func (b *BindingConfig) CPUBindingFlags() hwloc.CPUBindingFlags {
	var flags hwloc.CPUBindingFlags
	if b.Process {
		flags |= hwloc.CPUBIND_PROCESS
	}
	if b.Thread {
		flags |= hwloc.CPUBIND_THREAD
	}
	if b.SingleThreaded {
		flags |= hwloc.CPUBIND_ASSUME_SINGLE_THREAD
	}
	if b.Strict {
		flags |= hwloc.CPUBIND_STRICT
	}
	if b.NoMemBind {
		flags |= hwloc.CPUBIND_NOMEMBIND
	}
	return flags
}

// MemoryConfig holds the command line spellings of the memory binding
// options. An empty NodeSet means no memory binding was requested.
type MemoryConfig struct {
	NodeSet   string
	Policy    string
	Migrate   bool
	NoCPUBind bool
}

func (m *MemoryConfig) Flags() []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "membind",
			Usage:       "Bind memory to the NUMA nodes given in list format, e.g. '0-1'.",
			Destination: &m.NodeSet,
		},
		&cli.StringFlag{
			Name:        "mempolicy",
			Usage:       "The memory binding policy: 'default', 'firsttouch', 'bind', 'interleave' or 'nexttouch'.",
			Value:       "bind",
			Destination: &m.Policy,
		},
		&cli.BoolFlag{
			Name:        "migrate",
			Usage:       "Migrate already-allocated memory to the target nodes.",
			Destination: &m.Migrate,
		},
		&cli.BoolFlag{
			Name:        "no-cpubind",
			Usage:       "Avoid OS calls that would bind CPUs as a side effect.",
			Destination: &m.NoCPUBind,
		},
	}
	return flags
}

// MemBindPolicy resolves the policy spelling.
func (m *MemoryConfig) MemBindPolicy() (hwloc.MemBindPolicy, error) {
	switch m.Policy {
	case "default", "":
		return hwloc.MEMBIND_DEFAULT, nil
	case "firsttouch":
		return hwloc.MEMBIND_FIRSTTOUCH, nil
	case "bind":
		return hwloc.MEMBIND_BIND, nil
	case "interleave":
		return hwloc.MEMBIND_INTERLEAVE, nil
	case "nexttouch":
		return hwloc.MEMBIND_NEXTTOUCH, nil
	}
	return hwloc.MEMBIND_MIXED, fmt.Errorf("unknown memory binding policy %q", m.Policy)
}

// MemoryBindingFlags composes the selected hwloc memory binding flags. The
// membind node set is always given as NUMA node indices, so MEMBIND_BYNODESET
// is always included.
func (m *MemoryConfig) MemoryBindingFlags(scope BindingConfig) hwloc.MemoryBindingFlags {
	flags := hwloc.MEMBIND_BYNODESET
	if scope.Process {
		flags |= hwloc.MEMBIND_PROCESS
	}
	if scope.Thread {
		flags |= hwloc.MEMBIND_THREAD
	}
	if scope.Strict {
		flags |= hwloc.MEMBIND_STRICT
	}
	if m.Migrate {
		flags |= hwloc.MEMBIND_MIGRATE
	}
	if m.NoCPUBind {
		flags |= hwloc.MEMBIND_NOCPUBIND
	}
	return flags
}
