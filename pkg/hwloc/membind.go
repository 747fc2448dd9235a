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
	"errors"
	"fmt"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// memoryBindingTarget tags what a memory binding request addresses: a process
// identified by its pid, a raw memory area, or no specific target (the
// current program's default allocation policy).
type memoryBindingTarget int32

const (
	memBindTargetNone memoryBindingTarget = iota
	memBindTargetProcess
	memBindTargetArea
)

// memoryBindingOperation tags which kind of entry point a memory binding
// request goes to.
type memoryBindingOperation int32

const (
	memBindOpBind memoryBindingOperation = iota
	memBindOpUnbind
	memBindOpGetBinding
	memBindOpAllocate
	memBindOpGetLastLocation
)

// isValid reports whether the flags are legal for the given target and
// operation. Pure and side-effect free; unlike the CPU validator there is no
// virtual flag to strip, so no normalized flag set is produced.
func (f MemoryBindingFlags) isValid(target memoryBindingTarget, operation memoryBindingOperation) bool {
	// Intrinsically incompatible flag combination.
	if f&(MEMBIND_PROCESS|MEMBIND_THREAD) == MEMBIND_PROCESS|MEMBIND_THREAD {
		return false
	}

	// Support for PROCESS and THREAD.
	goodForTarget := true
	switch target {
	case memBindTargetArea:
		goodForTarget = f&(MEMBIND_PROCESS|MEMBIND_THREAD) == 0
	case memBindTargetProcess:
		goodForTarget = f&MEMBIND_THREAD == 0
	case memBindTargetNone:
	}
	if !goodForTarget {
		return false
	}

	// Support for STRICT, MIGRATE and NOCPUBIND.
	switch operation {
	case memBindOpGetLastLocation:
		return f&(MEMBIND_STRICT|MEMBIND_MIGRATE|MEMBIND_NOCPUBIND) == 0
	case memBindOpGetBinding:
		if f&(MEMBIND_MIGRATE|MEMBIND_NOCPUBIND) != 0 {
			return false
		}
		if target == memBindTargetNone {
			return f&MEMBIND_STRICT == 0 || f&MEMBIND_PROCESS != 0
		}
		return true
	case memBindOpUnbind:
		return f&(MEMBIND_STRICT|MEMBIND_MIGRATE) == 0
	case memBindOpAllocate:
		return f&MEMBIND_MIGRATE == 0
	case memBindOpBind:
	}
	return true
}

// BadMemoryFlagsError reports a memory binding flag combination that is
// illegal for the requested target and operation. It is produced locally,
// before any native call.
type BadMemoryFlagsError struct {
	Flags MemoryBindingFlags
}

func (e *BadMemoryFlagsError) Error() string {
	return fmt.Sprintf("memory binding flags %s are not valid in this context", e.Flags)
}

// Errors reported by memory binding operations that change bindings or
// allocate (Bind, Unbind, Allocate).
var (
	// ErrUnsupported: the requested action or policy is not supported. May
	// not be reported without MEMBIND_STRICT, in which case the native
	// library is allowed to approximate.
	ErrUnsupported = errors.New("action is not supported")
	// ErrBadSet: the binding cannot be enforced for the requested set. May
	// not be reported without MEMBIND_STRICT.
	ErrBadSet = errors.New("binding cannot be enforced")
	// ErrAllocationFailed: memory allocation failed, even before any binding
	// was attempted.
	ErrAllocationFailed = errors.New("memory allocation failed")
)

// Errors reported by memory binding queries (GetBinding, GetLastLocation).
var (
	// ErrMixedResults: MEMBIND_PROCESS and MEMBIND_STRICT were both given and
	// the policies or nodesets are not homogeneous across the threads of the
	// target process.
	ErrMixedResults = errors.New("result varies from one thread of the process to another")
	// ErrInvalidRequest: the native library rejected the query arguments.
	ErrInvalidRequest = errors.New("invalid request")
)

// UnexpectedErrnoError reports an errno value the error translation does not
// recognize. The exact number is preserved rather than guessed at.
type UnexpectedErrnoError struct {
	Errno syscall.Errno
}

func (e *UnexpectedErrnoError) Error() string {
	return fmt.Sprintf("unexpected errno value %d (%s)", int(e.Errno), e.Errno.Error())
}

// UnexpectedResultError reports a native result code other than the
// documented >=0 and -1, together with the errno observed next to it.
type UnexpectedResultError struct {
	Result int
	Errno  syscall.Errno
}

func (e *UnexpectedResultError) Error() string {
	return fmt.Sprintf("unexpected binding function result %d with errno %d", e.Result, int(e.Errno))
}

// memBindSetupResult translates the result of a native call that sets memory
// bindings or allocates. A nil return means success.
func memBindSetupResult(result int, errno syscall.Errno) error {
	switch {
	case result >= 0:
		return nil
	case result == -1:
		switch errno {
		case unix.ENOSYS:
			return ErrUnsupported
		case unix.EXDEV:
			return ErrBadSet
		case unix.ENOMEM:
			return ErrAllocationFailed
		}
		return &UnexpectedErrnoError{Errno: errno}
	}
	return &UnexpectedResultError{Result: result, Errno: errno}
}

// memBindQueryResult translates the result of a native call that queries
// memory bindings or locations. A nil return means success.
func memBindQueryResult(result int, errno syscall.Errno) error {
	switch {
	case result >= 0:
		return nil
	case result == -1:
		switch errno {
		case unix.EXDEV:
			return ErrMixedResults
		case unix.EINVAL:
			return ErrInvalidRequest
		}
		return &UnexpectedErrnoError{Errno: errno}
	}
	return &UnexpectedResultError{Result: result, Errno: errno}
}

// setMemory validates and runs one set_membind style native call.
func (t *Topology) setMemory(flags MemoryBindingFlags, target memoryBindingTarget, operation memoryBindingOperation,
	call func(flags int) (int, syscall.Errno)) error {
	if !flags.isValid(target, operation) {
		return &BadMemoryFlagsError{Flags: flags}
	}
	result, errno := call(int(flags))
	return memBindSetupResult(result, errno)
}

// queryMemory validates and runs one get_membind style native call. The
// output set is only allocated once the request is known to be legal.
func (t *Topology) queryMemory(flags MemoryBindingFlags, target memoryBindingTarget, operation memoryBindingOperation,
	call func(set *Bitmap, policy *MemBindPolicy, flags int) (int, syscall.Errno)) (Bitmap, MemBindPolicy, error) {
	if !flags.isValid(target, operation) {
		return nil, MEMBIND_MIXED, &BadMemoryFlagsError{Flags: flags}
	}
	set := Bitmap{}
	policy := MEMBIND_DEFAULT
	result, errno := call(&set, &policy, int(flags))
	if err := memBindQueryResult(result, errno); err != nil {
		return nil, MEMBIND_MIXED, err
	}
	return set, policy, nil
}

// BindMemory sets the default memory binding policy of the current process
// or thread to prefer the NUMA nodes designated by set.
//
// The set is interpreted as processor indices unless MEMBIND_BYNODESET is
// given; binding by nodeset should be preferred since binding by cpuset
// cannot address CPU-less NUMA nodes.
func (t *Topology) BindMemory(set Bitmap, policy MemBindPolicy, flags MemoryBindingFlags) error {
	return t.setMemory(flags, memBindTargetNone, memBindOpBind, func(flags int) (int, syscall.Errno) {
		return t.native.setMemBind(set, policy, flags)
	})
}

// UnbindMemory resets the default memory binding policy of the current
// process or thread to the system default. MEMBIND_STRICT and MEMBIND_MIGRATE
// must not be used here.
func (t *Topology) UnbindMemory(flags MemoryBindingFlags) error {
	return t.setMemory(flags, memBindTargetNone, memBindOpUnbind, func(flags int) (int, syscall.Errno) {
		return t.native.setMemBind(t.completeNodeSetBitmap(), MEMBIND_DEFAULT, flags|int(MEMBIND_BYNODESET))
	})
}

// MemoryBinding returns the default memory binding policy of the current
// process or thread.
//
// Passing MEMBIND_PROCESS queries all threads of the process: with
// MEMBIND_STRICT it fails with ErrMixedResults unless all threads share one
// policy and nodeset, without it the nodesets are combined and
// MEMBIND_MIXED may be returned as the policy. MEMBIND_STRICT without
// MEMBIND_PROCESS is not a meaningful request and is rejected locally.
func (t *Topology) MemoryBinding(flags MemoryBindingFlags) (Bitmap, MemBindPolicy, error) {
	return t.queryMemory(flags, memBindTargetNone, memBindOpGetBinding,
		func(set *Bitmap, policy *MemBindPolicy, flags int) (int, syscall.Errno) {
			return t.native.getMemBind(set, policy, flags)
		})
}

// BindProcessMemory sets the default memory binding policy of the process
// identified by pid. MEMBIND_THREAD must not be used here.
func (t *Topology) BindProcessMemory(pid ProcessID, set Bitmap, policy MemBindPolicy, flags MemoryBindingFlags) error {
	return t.setMemory(flags, memBindTargetProcess, memBindOpBind, func(flags int) (int, syscall.Errno) {
		return t.native.setProcMemBind(pid, set, policy, flags)
	})
}

// UnbindProcessMemory resets the default memory binding policy of the process
// identified by pid to the system default.
func (t *Topology) UnbindProcessMemory(pid ProcessID, flags MemoryBindingFlags) error {
	return t.setMemory(flags, memBindTargetProcess, memBindOpUnbind, func(flags int) (int, syscall.Errno) {
		return t.native.setProcMemBind(pid, t.completeNodeSetBitmap(), MEMBIND_DEFAULT, flags|int(MEMBIND_BYNODESET))
	})
}

// ProcessMemoryBinding returns the default memory binding policy of the
// process identified by pid.
func (t *Topology) ProcessMemoryBinding(pid ProcessID, flags MemoryBindingFlags) (Bitmap, MemBindPolicy, error) {
	return t.queryMemory(flags, memBindTargetProcess, memBindOpGetBinding,
		func(set *Bitmap, policy *MemBindPolicy, flags int) (int, syscall.Errno) {
			return t.native.getProcMemBind(pid, set, policy, flags)
		})
}

// BindMemoryArea binds the memory pages covered by area to the NUMA nodes
// designated by set. MEMBIND_PROCESS and MEMBIND_THREAD must not be used
// here.
func (t *Topology) BindMemoryArea(area []byte, set Bitmap, policy MemBindPolicy, flags MemoryBindingFlags) error {
	if len(area) == 0 {
		return ErrInvalidRequest
	}
	return t.setMemory(flags, memBindTargetArea, memBindOpBind, func(flags int) (int, syscall.Errno) {
		return t.native.setAreaMemBind(unsafe.Pointer(&area[0]), uintptr(len(area)), set, policy, flags)
	})
}

// UnbindMemoryArea resets the binding of the memory pages covered by area to
// the system default.
func (t *Topology) UnbindMemoryArea(area []byte, flags MemoryBindingFlags) error {
	if len(area) == 0 {
		return ErrInvalidRequest
	}
	return t.setMemory(flags, memBindTargetArea, memBindOpUnbind, func(flags int) (int, syscall.Errno) {
		return t.native.setAreaMemBind(unsafe.Pointer(&area[0]), uintptr(len(area)),
			t.completeNodeSetBitmap(), MEMBIND_DEFAULT, flags|int(MEMBIND_BYNODESET))
	})
}

// AreaMemoryBinding returns the binding of the memory pages covered by area.
// If the pages are bound inconsistently, the returned set combines the
// per-page sets and the policy is MEMBIND_MIXED (with MEMBIND_STRICT the
// query fails instead).
func (t *Topology) AreaMemoryBinding(area []byte, flags MemoryBindingFlags) (Bitmap, MemBindPolicy, error) {
	if len(area) == 0 {
		return nil, MEMBIND_MIXED, ErrInvalidRequest
	}
	return t.queryMemory(flags, memBindTargetArea, memBindOpGetBinding,
		func(set *Bitmap, policy *MemBindPolicy, flags int) (int, syscall.Errno) {
			return t.native.getAreaMemBind(unsafe.Pointer(&area[0]), uintptr(len(area)), set, policy, flags)
		})
}

// AreaMemoryLocation returns the NUMA nodes where the memory pages covered by
// area are physically allocated, as opposed to where they are bound. Pages
// not yet touched may not be allocated anywhere yet. MEMBIND_STRICT,
// MEMBIND_MIGRATE and MEMBIND_NOCPUBIND must not be used here.
func (t *Topology) AreaMemoryLocation(area []byte, flags MemoryBindingFlags) (Bitmap, error) {
	if len(area) == 0 {
		return nil, ErrInvalidRequest
	}
	set, _, err := t.queryMemory(flags, memBindTargetArea, memBindOpGetLastLocation,
		func(set *Bitmap, policy *MemBindPolicy, flags int) (int, syscall.Errno) {
			return t.native.getAreaMemLocation(unsafe.Pointer(&area[0]), uintptr(len(area)), set, flags)
		})
	return set, err
}

// AllocateMemory allocates size bytes through the native allocator, without
// any binding applied. The returned allocation must be released through
// Bytes.Free before the topology is destroyed.
func (t *Topology) AllocateMemory(size uintptr) (*Bytes, error) {
	addr := t.native.alloc(size)
	b := wrapBytes(t, addr, size)
	if b == nil {
		return nil, ErrAllocationFailed
	}
	return b, nil
}

// AllocateBoundMemory allocates size bytes on the NUMA nodes designated by
// set. The memory may still need to be touched to be physically allocated
// there; MEMBIND_STRICT makes the allocation fail instead of falling back.
func (t *Topology) AllocateBoundMemory(size uintptr, set Bitmap, policy MemBindPolicy, flags MemoryBindingFlags) (*Bytes, error) {
	if !flags.isValid(memBindTargetNone, memBindOpAllocate) {
		return nil, &BadMemoryFlagsError{Flags: flags}
	}
	addr, errno := t.native.allocMemBind(size, set, policy, int(flags))
	b := wrapBytes(t, addr, size)
	if b == nil {
		if err := memBindSetupResult(-1, errno); err != nil {
			return nil, err
		}
		return nil, ErrAllocationFailed
	}
	return b, nil
}

// BindingAllocateMemory first applies the given binding to the current
// process or thread as BindMemory would, then allocates size bytes, which
// will be placed according to that binding on first touch. Useful where
// alloc_membind style allocation is unsupported.
func (t *Topology) BindingAllocateMemory(size uintptr, set Bitmap, policy MemBindPolicy, flags MemoryBindingFlags) (*Bytes, error) {
	if !set.IsEmpty() {
		if err := t.BindMemory(set, policy, flags); err != nil {
			return nil, err
		}
	}
	return t.AllocateMemory(size)
}

// completeNodeSetBitmap returns the complete nodeset of the topology root,
// the reference set used to reset bindings to the system default.
func (t *Topology) completeNodeSetBitmap() Bitmap {
	root := t.native.objectAtDepth(0, 0)
	if root == nil {
		return Bitmap{}
	}
	set, ok := t.native.objNodeSet(root, true)
	if !ok {
		return Bitmap{}
	}
	return set.Bitmap
}
