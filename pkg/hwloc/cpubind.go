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

package hwloc

import (
	"fmt"
	"math/bits"
	"runtime"
	"syscall"

	"golang.org/x/sys/unix"
)

// CPUBoundObject identifies what a CPU binding request addresses. It decides
// which binding target flags are legal for the request.
type CPUBoundObject int32

const (
	// CPUBoundThisProgram is the currently running program.
	CPUBoundThisProgram CPUBoundObject = iota
	// CPUBoundProcessOrThread is a process identified by its pid, or on
	// Linux possibly a thread identified by its kernel tid.
	CPUBoundProcessOrThread
	// CPUBoundThread is a thread identified by its ThreadID.
	CPUBoundThread
)

// String describes the bound object the way it appears in error messages.
func (o CPUBoundObject) String() string {
	switch o {
	case CPUBoundProcessOrThread:
		return "the target process/thread"
	case CPUBoundThread:
		return "the target thread"
	}
	return "the current process/thread"
}

// cpuBindingOperation tags which kind of entry point a request goes to, for
// operation-specific validation rules.
type cpuBindingOperation int32

const (
	cpuBindSetBinding cpuBindingOperation = iota
	cpuBindGetBinding
	cpuBindGetLastLocation
)

// tidRedirectsProcessBind is true on the one platform where passing
// CPUBIND_THREAD to a process-addressed entry point redirects the call to a
// thread identified by its kernel tid. Package variable so tests can
// parametrize the platform predicate.
var tidRedirectsProcessBind = runtime.GOOS == "linux"

// validate checks the flags against the bound object and the operation and
// returns the flags to forward to the native call. It is pure: no native call
// and no allocation happens here. The returned flags never contain the
// virtual CPUBIND_ASSUME_SINGLE_THREAD bit.
func (f CPUBindingFlags) validate(target CPUBoundObject, operation cpuBindingOperation) (CPUBindingFlags, bool) {
	// THREAD on a process-addressed entry point turns it into a tid-addressed
	// one, but only where the OS supports that redirection.
	tidSpecialCase := f&CPUBIND_THREAD != 0 && target == CPUBoundProcessOrThread
	if tidSpecialCase && !tidRedirectsProcessBind {
		return 0, false
	}

	// Exactly one target flag when addressing the current program, none
	// otherwise, except for the special case above.
	numTargetFlags := bits.OnesCount32(uint32(f & cpuBindTargetFlags))
	wantTargetFlags := 0
	if target == CPUBoundThisProgram {
		wantTargetFlags = 1
	}
	if numTargetFlags != wantTargetFlags && !(numTargetFlags == 1 && tidSpecialCase) {
		return 0, false
	}

	switch operation {
	case cpuBindGetLastLocation:
		if f&(CPUBIND_STRICT|CPUBIND_NOMEMBIND) != 0 {
			return 0, false
		}
	case cpuBindGetBinding:
		if (f&CPUBIND_STRICT != 0 && target == CPUBoundThread) || f&CPUBIND_NOMEMBIND != 0 {
			return 0, false
		}
	case cpuBindSetBinding:
	}

	// The virtual flag has served its purpose and must not reach the native
	// call.
	return f &^ CPUBIND_ASSUME_SINGLE_THREAD, true
}

// BadObjectError reports that CPU bindings cannot be queried or set at all
// for the addressed kind of object on this system. Without CPUBIND_STRICT the
// native library is allowed to approximate, so this may only surface on
// strict requests.
type BadObjectError struct {
	Object CPUBoundObject
}

func (e *BadObjectError) Error() string {
	return fmt.Sprintf("cannot query or set the CPU binding of %s", e.Object)
}

// BadFlagsError reports a CPU binding flag combination that is illegal for
// the requested object and operation. It is produced locally, before any
// native call.
type BadFlagsError struct {
	Flags CPUBindingFlags
}

func (e *BadFlagsError) Error() string {
	return fmt.Sprintf("CPU binding flags %s are not valid in this context", e.Flags)
}

// BadCPUSetError reports that the OS cannot bind the addressed object to the
// specific requested CPU set, e.g. because it only supports binding to a
// single PU or a single NUMA node.
type BadCPUSetError struct {
	Object CPUBoundObject
	Set    CPUSet
}

func (e *BadCPUSetError) Error() string {
	return fmt.Sprintf("cannot bind %s to %s", e.Object, e.Set)
}

// RawError reports a native result or errno that the error translation does
// not recognize. It is surfaced verbatim instead of being coerced into a
// structured error, since it indicates a native-library misbehavior rather
// than a user-correctable condition.
type RawError struct {
	API    string
	Result int
	Errno  syscall.Errno
}

func (e *RawError) Error() string {
	return fmt.Sprintf("%s returned %d with errno %d (%s)", e.API, e.Result, int(e.Errno), e.Errno.Error())
}

// translateCPUBindError maps a failed native CPU binding result onto the
// error taxonomy. set is the requested set for binding calls and nil for
// queries, which can never legally fail with EXDEV.
func translateCPUBindError(api string, target CPUBoundObject, set *CPUSet, result int, errno syscall.Errno) error {
	if result == -1 {
		switch errno {
		case unix.ENOSYS:
			return &BadObjectError{Object: target}
		case unix.EXDEV:
			if set == nil {
				panic(fmt.Sprintf("%s: EXDEV on a call that does not bind to CPUs", api))
			}
			return &BadCPUSetError{Object: target, Set: set.Clone()}
		}
	}
	return &RawError{API: api, Result: result, Errno: errno}
}

// bindCPU validates and runs one set_cpubind style native call.
func (t *Topology) bindCPU(set CPUSet, flags CPUBindingFlags, target CPUBoundObject, api string,
	call func(set CPUSet, flags int) (int, syscall.Errno)) error {
	normalized, ok := flags.validate(target, cpuBindSetBinding)
	if !ok {
		return &BadFlagsError{Flags: flags}
	}
	result, errno := call(set, int(normalized))
	if result >= 0 {
		return nil
	}
	return translateCPUBindError(api, target, &set, result, errno)
}

// queryCPUSet validates and runs one get_cpubind or get_last_cpu_location
// style native call. The output set is only allocated once the request is
// known to be legal.
func (t *Topology) queryCPUSet(flags CPUBindingFlags, target CPUBoundObject, operation cpuBindingOperation, api string,
	call func(set *CPUSet, flags int) (int, syscall.Errno)) (CPUSet, error) {
	normalized, ok := flags.validate(target, operation)
	if !ok {
		return CPUSet{}, &BadFlagsError{Flags: flags}
	}
	set := NewCPUSet()
	result, errno := call(&set, int(normalized))
	if result >= 0 {
		return set, nil
	}
	return CPUSet{}, translateCPUBindError(api, target, nil, result, errno)
}

// BindCPU binds the current process or thread to the given CPUs.
//
// Exactly one of the CPUBIND_ASSUME_SINGLE_THREAD, CPUBIND_THREAD and
// CPUBIND_PROCESS target flags must be set (listed in order of decreasing
// portability). Some operating systems only support binding to a single PU;
// keeping the set to one PU also avoids expensive migrations. To unbind, bind
// to the complete CPU set of the topology.
//
// On some operating systems binding CPUs also binds memory; pass
// CPUBIND_NOMEMBIND to forbid that.
func (t *Topology) BindCPU(set CPUSet, flags CPUBindingFlags) error {
	return t.bindCPU(set, flags, CPUBoundThisProgram, "hwloc_set_cpubind",
		func(set CPUSet, flags int) (int, syscall.Errno) {
			return t.native.setCPUBind(set, flags)
		})
}

// CPUBinding returns the current process or thread CPU binding.
//
// Exactly one of the CPUBIND_ASSUME_SINGLE_THREAD, CPUBIND_THREAD and
// CPUBIND_PROCESS target flags must be set. CPUBIND_NOMEMBIND must not be
// used here.
func (t *Topology) CPUBinding(flags CPUBindingFlags) (CPUSet, error) {
	return t.queryCPUSet(flags, CPUBoundThisProgram, cpuBindGetBinding, "hwloc_get_cpubind",
		func(set *CPUSet, flags int) (int, syscall.Errno) {
			return t.native.getCPUBind(set, flags)
		})
}

// LastCPULocation returns the CPUs where the current process or thread last
// ran. The scheduler may move tasks at any time, so the answer can already be
// outdated when it returns.
//
// Exactly one of the CPUBIND_ASSUME_SINGLE_THREAD, CPUBIND_THREAD and
// CPUBIND_PROCESS target flags must be set. CPUBIND_STRICT and
// CPUBIND_NOMEMBIND must not be used here.
func (t *Topology) LastCPULocation(flags CPUBindingFlags) (CPUSet, error) {
	return t.queryCPUSet(flags, CPUBoundThisProgram, cpuBindGetLastLocation, "hwloc_get_last_cpu_location",
		func(set *CPUSet, flags int) (int, syscall.Errno) {
			return t.native.getLastCPULocation(set, flags)
		})
}

// BindProcessCPU binds the process identified by pid to the given CPUs.
//
// As a special case on Linux, if pid is a kernel tid and CPUBIND_THREAD is
// set, the addressed thread is bound instead. Otherwise no binding target
// flag may be used with this function.
func (t *Topology) BindProcessCPU(pid ProcessID, set CPUSet, flags CPUBindingFlags) error {
	return t.bindCPU(set, flags, CPUBoundProcessOrThread, "hwloc_set_proc_cpubind",
		func(set CPUSet, flags int) (int, syscall.Errno) {
			return t.native.setProcCPUBind(pid, set, flags)
		})
}

// ProcessCPUBinding returns the CPU binding of the process identified by pid.
// The Linux tid special case of BindProcessCPU applies here as well.
func (t *Topology) ProcessCPUBinding(pid ProcessID, flags CPUBindingFlags) (CPUSet, error) {
	return t.queryCPUSet(flags, CPUBoundProcessOrThread, cpuBindGetBinding, "hwloc_get_proc_cpubind",
		func(set *CPUSet, flags int) (int, syscall.Errno) {
			return t.native.getProcCPUBind(pid, set, flags)
		})
}

// BindThreadCPU binds the thread identified by tid to the given CPUs. No
// binding target flag may be used with this function.
func (t *Topology) BindThreadCPU(tid ThreadID, set CPUSet, flags CPUBindingFlags) error {
	return t.bindCPU(set, flags, CPUBoundThread, "hwloc_set_thread_cpubind",
		func(set CPUSet, flags int) (int, syscall.Errno) {
			return t.native.setThreadCPUBind(tid, set, flags)
		})
}

// ThreadCPUBinding returns the CPU binding of the thread identified by tid.
// CPUBIND_STRICT, CPUBIND_NOMEMBIND and binding target flags must not be used
// with this function.
func (t *Topology) ThreadCPUBinding(tid ThreadID, flags CPUBindingFlags) (CPUSet, error) {
	return t.queryCPUSet(flags, CPUBoundThread, cpuBindGetBinding, "hwloc_get_thread_cpubind",
		func(set *CPUSet, flags int) (int, syscall.Errno) {
			return t.native.getThreadCPUBind(tid, set, flags)
		})
}

// LastProcessCPULocation returns the CPUs where the process identified by pid
// last ran. The Linux tid special case of BindProcessCPU applies here as
// well; CPUBIND_STRICT and CPUBIND_NOMEMBIND must not be used.
func (t *Topology) LastProcessCPULocation(pid ProcessID, flags CPUBindingFlags) (CPUSet, error) {
	return t.queryCPUSet(flags, CPUBoundProcessOrThread, cpuBindGetLastLocation, "hwloc_get_proc_last_cpu_location",
		func(set *CPUSet, flags int) (int, syscall.Errno) {
			return t.native.getProcLastCPULocation(pid, set, flags)
		})
}
