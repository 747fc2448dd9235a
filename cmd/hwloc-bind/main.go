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

package main

import (
	"fmt"
	"os"

	"github.com/prometheus/procfs"
	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"

	"github.com/hwtopo/go-hwloc/internal/flags"
	"github.com/hwtopo/go-hwloc/internal/info"
	"github.com/hwtopo/go-hwloc/internal/logger"
	"github.com/hwtopo/go-hwloc/internal/proc"
	"github.com/hwtopo/go-hwloc/pkg/hwloc"
)

// Config represents a collection of config options for hwloc-bind.
type Config struct {
	get  bool
	last bool
	mem  bool

	target  flags.TargetConfig
	binding flags.BindingConfig
	memory  flags.MemoryConfig

	// flags stores the CLI flags for later processing.
	flags []cli.Flag
}

// warner is the logging surface the per-thread loops report through.
type warner interface {
	Warningf(format string, args ...interface{})
}

// cpuBinder is the slice of the topology surface the CPU binding paths go
// through. It is satisfied by *hwloc.Topology.
type cpuBinder interface {
	BindCPU(set hwloc.CPUSet, flags hwloc.CPUBindingFlags) error
	BindProcessCPU(pid hwloc.ProcessID, set hwloc.CPUSet, flags hwloc.CPUBindingFlags) error
	CPUBinding(flags hwloc.CPUBindingFlags) (hwloc.CPUSet, error)
	ProcessCPUBinding(pid hwloc.ProcessID, flags hwloc.CPUBindingFlags) (hwloc.CPUSet, error)
}

func main() {
	config := &Config{}

	c := cli.NewApp()
	c.Name = "hwloc-bind"
	c.Usage = "bind or query the CPU and memory binding of processes and threads"
	c.ArgsUsage = "[cpuset]"
	c.Version = info.GetVersionString()
	c.Action = func(ctx *cli.Context) error {
		return start(ctx, config)
	}

	config.flags = []cli.Flag{
		&cli.BoolFlag{
			Name:        "get",
			Usage:       "Print the current binding instead of setting one.",
			Destination: &config.get,
		},
		&cli.BoolFlag{
			Name:        "last",
			Usage:       "Print where the target last ran instead of setting a binding.",
			Destination: &config.last,
		},
		&cli.BoolFlag{
			Name:        "mem",
			Usage:       "With 'get', print the memory binding instead of the CPU binding.",
			Destination: &config.mem,
		},
	}
	config.flags = append(config.flags, config.target.Flags()...)
	config.flags = append(config.flags, config.binding.Flags()...)
	config.flags = append(config.flags, config.memory.Flags()...)

	c.Flags = config.flags

	if err := c.Run(os.Args); err != nil {
		klog.Error(err)
		os.Exit(1)
	}
}

func start(ctx *cli.Context, config *Config) error {
	if err := config.validate(); err != nil {
		return err
	}

	if err := hwloc.Init(); err != nil {
		return fmt.Errorf("error loading the hwloc library: %v", err)
	}
	defer func() {
		if err := hwloc.Shutdown(); err != nil {
			klog.Errorf("Error unloading the hwloc library: %v", err)
		}
	}()

	topo, err := hwloc.NewTopology()
	if err != nil {
		return fmt.Errorf("error discovering the topology: %v", err)
	}
	defer topo.Destroy()

	if config.target.ProcessName != "" {
		source, err := proc.NewSource(procfs.DefaultMountPoint)
		if err != nil {
			return err
		}
		pid, err := source.FindByName(config.target.ProcessName)
		if err != nil {
			return err
		}
		klog.Infof("Resolved process %q to pid %d", config.target.ProcessName, pid)
		config.target.PID = pid
	}

	switch {
	case config.last:
		return printLastLocation(topo, config)
	case config.get:
		return printBinding(topo, config)
	}
	return applyBinding(ctx, topo, config)
}

// validate rejects flag combinations before any native call is made.
func (config *Config) validate() error {
	if err := config.target.Validate(); err != nil {
		return err
	}
	// hwloc has no thread-addressed memory binding.
	wantsMemory := config.memory.NodeSet != "" || (config.get && config.mem)
	if wantsMemory && (config.target.TID != 0 || config.target.AllThreads) {
		return fmt.Errorf("memory binding cannot address individual threads; use 'pid' or the current process")
	}
	return nil
}

func applyBinding(ctx *cli.Context, topo *hwloc.Topology, config *Config) error {
	boundSomething := false

	if ctx.Args().Present() {
		set, err := hwloc.ParseCPUSet(ctx.Args().First())
		if err != nil {
			return fmt.Errorf("error parsing cpuset %q: %v", ctx.Args().First(), err)
		}
		if err := bindCPU(topo, config, set); err != nil {
			return err
		}
		boundSomething = true
	}

	if config.memory.NodeSet != "" {
		if err := bindMemory(topo, config); err != nil {
			return err
		}
		boundSomething = true
	}

	if !boundSomething {
		return fmt.Errorf("nothing to do: pass a cpuset argument, 'membind', 'get' or 'last'")
	}
	return nil
}

func bindCPU(topo cpuBinder, config *Config, set hwloc.CPUSet) error {
	bindingFlags := config.binding.CPUBindingFlags()

	switch {
	case config.target.AllThreads && config.target.PID != 0:
		tids, err := threadIDs(config.target.PID)
		if err != nil {
			return err
		}
		return bindAllThreads(topo, config.target.PID, tids, set, bindingFlags, logger.ToKlog)
	case config.target.PID != 0:
		return topo.BindProcessCPU(hwloc.ProcessID(config.target.PID), set, bindingFlags)
	case config.target.TID != 0:
		// Kernel tids are not pthread_t handles and must not reach the
		// thread-addressed entry points. On Linux the process-addressed
		// entry points accept a tid when CPUBIND_THREAD is set.
		return topo.BindProcessCPU(hwloc.ProcessID(config.target.TID), set, bindingFlags|hwloc.CPUBIND_THREAD)
	}
	return topo.BindCPU(set, bindingFlags)
}

func threadIDs(pid int) ([]int, error) {
	source, err := proc.NewSource(procfs.DefaultMountPoint)
	if err != nil {
		return nil, err
	}
	return source.ThreadIDs(pid)
}

// bindAllThreads binds every thread of the process individually, using the
// tid redirect of the process-addressed entry point. Threads may exit while
// the walk is in progress; those are reported and skipped rather than
// failing the whole request.
func bindAllThreads(topo cpuBinder, pid int, tids []int, set hwloc.CPUSet, bindingFlags hwloc.CPUBindingFlags, warn warner) error {
	bound := 0
	for _, tid := range tids {
		if err := topo.BindProcessCPU(hwloc.ProcessID(tid), set, bindingFlags|hwloc.CPUBIND_THREAD); err != nil {
			warn.Warningf("Could not bind thread %d: %v", tid, err)
			continue
		}
		bound++
	}
	if bound == 0 {
		return fmt.Errorf("could not bind any of the %d threads of pid %d", len(tids), pid)
	}
	klog.Infof("Bound %d of %d threads of pid %d to %s", bound, len(tids), pid, set)
	return nil
}

func bindMemory(topo *hwloc.Topology, config *Config) error {
	nodes, err := hwloc.ParseNodeSet(config.memory.NodeSet)
	if err != nil {
		return fmt.Errorf("error parsing nodeset %q: %v", config.memory.NodeSet, err)
	}
	policy, err := config.memory.MemBindPolicy()
	if err != nil {
		return err
	}
	memoryFlags := config.memory.MemoryBindingFlags(config.binding)

	if config.target.PID != 0 {
		return topo.BindProcessMemory(hwloc.ProcessID(config.target.PID), nodes.Bitmap, policy, memoryFlags)
	}
	return topo.BindMemory(nodes.Bitmap, policy, memoryFlags)
}

func printBinding(topo *hwloc.Topology, config *Config) error {
	if config.mem {
		return printMemoryBinding(topo, config)
	}

	bindingFlags := config.binding.CPUBindingFlags()

	if config.target.AllThreads && config.target.PID != 0 {
		tids, err := threadIDs(config.target.PID)
		if err != nil {
			return err
		}
		return printAllThreadBindings(topo, tids, bindingFlags, logger.ToKlog)
	}

	set, err := queryCPUBinding(topo, config, bindingFlags)
	if err != nil {
		return err
	}
	fmt.Println(set)
	return nil
}

func queryCPUBinding(topo cpuBinder, config *Config, bindingFlags hwloc.CPUBindingFlags) (hwloc.CPUSet, error) {
	switch {
	case config.target.PID != 0:
		return topo.ProcessCPUBinding(hwloc.ProcessID(config.target.PID), bindingFlags)
	case config.target.TID != 0:
		// Same tid redirect as in bindCPU.
		return topo.ProcessCPUBinding(hwloc.ProcessID(config.target.TID), bindingFlags|hwloc.CPUBIND_THREAD)
	}
	return topo.CPUBinding(bindingFlags)
}

func printAllThreadBindings(topo cpuBinder, tids []int, bindingFlags hwloc.CPUBindingFlags, warn warner) error {
	for _, tid := range tids {
		set, err := topo.ProcessCPUBinding(hwloc.ProcessID(tid), bindingFlags|hwloc.CPUBIND_THREAD)
		if err != nil {
			warn.Warningf("Could not query thread %d: %v", tid, err)
			continue
		}
		fmt.Printf("%d: %s\n", tid, set)
	}
	return nil
}

func printMemoryBinding(topo *hwloc.Topology, config *Config) error {
	memoryFlags := config.memory.MemoryBindingFlags(config.binding)

	var (
		nodes  hwloc.Bitmap
		policy hwloc.MemBindPolicy
		err    error
	)
	if config.target.PID != 0 {
		nodes, policy, err = topo.ProcessMemoryBinding(hwloc.ProcessID(config.target.PID), memoryFlags)
	} else {
		nodes, policy, err = topo.MemoryBinding(memoryFlags)
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s %s\n", nodes, policy)
	return nil
}

func printLastLocation(topo *hwloc.Topology, config *Config) error {
	bindingFlags := config.binding.CPUBindingFlags()

	var (
		set hwloc.CPUSet
		err error
	)
	switch {
	case config.target.PID != 0:
		set, err = topo.LastProcessCPULocation(hwloc.ProcessID(config.target.PID), bindingFlags)
	case config.target.TID != 0:
		// Same tid redirect as in bindCPU.
		set, err = topo.LastProcessCPULocation(hwloc.ProcessID(config.target.TID), bindingFlags|hwloc.CPUBIND_THREAD)
	default:
		set, err = topo.LastCPULocation(bindingFlags)
	}
	if err != nil {
		return err
	}
	fmt.Println(set)
	return nil
}
