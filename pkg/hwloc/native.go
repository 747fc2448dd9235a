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
	"syscall"
	"unsafe"
)

// objref is a borrowed reference to a topology object owned by the native
// library. It stays valid for the lifetime of its topology and is never
// freed from the Go side.
type objref = unsafe.Pointer

// objLink selects one of the pointer links out of a topology object.
type objLink int

const (
	linkParent objLink = iota
	linkNextCousin
	linkPrevCousin
	linkNextSibling
	linkPrevSibling
	linkFirstChild
	linkLastChild
	linkMemoryFirstChild
	linkIOFirstChild
	linkMiscFirstChild
)

// cpuBinder is the CPU binding slice of the native call surface. Each method
// performs exactly one native call and reports the raw result together with
// the errno captured immediately after a failing call. Flag legality is the
// caller's responsibility; implementations forward flags verbatim.
type cpuBinder interface {
	setCPUBind(set CPUSet, flags int) (int, syscall.Errno)
	getCPUBind(set *CPUSet, flags int) (int, syscall.Errno)
	setProcCPUBind(pid ProcessID, set CPUSet, flags int) (int, syscall.Errno)
	getProcCPUBind(pid ProcessID, set *CPUSet, flags int) (int, syscall.Errno)
	setThreadCPUBind(tid ThreadID, set CPUSet, flags int) (int, syscall.Errno)
	getThreadCPUBind(tid ThreadID, set *CPUSet, flags int) (int, syscall.Errno)
	getLastCPULocation(set *CPUSet, flags int) (int, syscall.Errno)
	getProcLastCPULocation(pid ProcessID, set *CPUSet, flags int) (int, syscall.Errno)
}

// memBinder is the memory binding slice of the native call surface.
type memBinder interface {
	setMemBind(set Bitmap, policy MemBindPolicy, flags int) (int, syscall.Errno)
	getMemBind(set *Bitmap, policy *MemBindPolicy, flags int) (int, syscall.Errno)
	setProcMemBind(pid ProcessID, set Bitmap, policy MemBindPolicy, flags int) (int, syscall.Errno)
	getProcMemBind(pid ProcessID, set *Bitmap, policy *MemBindPolicy, flags int) (int, syscall.Errno)
	setAreaMemBind(addr unsafe.Pointer, size uintptr, set Bitmap, policy MemBindPolicy, flags int) (int, syscall.Errno)
	getAreaMemBind(addr unsafe.Pointer, size uintptr, set *Bitmap, policy *MemBindPolicy, flags int) (int, syscall.Errno)
	getAreaMemLocation(addr unsafe.Pointer, size uintptr, set *Bitmap, flags int) (int, syscall.Errno)
	alloc(size uintptr) unsafe.Pointer
	allocMemBind(size uintptr, set Bitmap, policy MemBindPolicy, flags int) (unsafe.Pointer, syscall.Errno)
	free(addr unsafe.Pointer, size uintptr) int
}

// objectAccessor is the traversal slice of the native call surface: depth and
// type queries plus per-field reads of borrowed topology objects. Only the
// scalar and set data needed by callers is ever copied out.
type objectAccessor interface {
	depthForType(ot ObjectType) TypeDepth
	numObjectsAtDepth(depth TypeDepth) int
	objectAtDepth(depth TypeDepth, index int) objref

	objType(o objref) ObjectType
	objSubtype(o objref) string
	objOSIndex(o objref) uint32
	objName(o objref) string
	objTotalMemory(o objref) uint64
	objDepth(o objref) TypeDepth
	objLogicalIndex(o objref) uint32
	objSiblingRank(o objref) uint32
	objSymmetricSubtree(o objref) bool
	objArity(o objref) (normal, memory, io, misc uint32)
	objLink(o objref, l objLink) objref
	objChild(o objref, index uint32) objref
	objCPUSet(o objref, complete bool) (CPUSet, bool)
	objNodeSet(o objref, complete bool) (NodeSet, bool)
	objInfos(o objref) []Info
}

// nativeTopology is everything this package needs from one loaded native
// topology. The production implementation is cgo-backed; tests substitute
// fakes to drive the validators and translators without a native library.
type nativeTopology interface {
	cpuBinder
	memBinder
	objectAccessor
	destroy()
}
