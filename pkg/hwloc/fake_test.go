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
	"syscall"
	"unsafe"
)

// fakeNative substitutes for the cgo-backed topology in tests. Every native
// call panics unless the test installed a function for it, so a test that
// expects validation to reject a request before the native boundary gets a
// loud failure if a call slips through anyway.
type fakeNative struct {
	setCPUBindFn             func(set CPUSet, flags int) (int, syscall.Errno)
	getCPUBindFn             func(set *CPUSet, flags int) (int, syscall.Errno)
	setProcCPUBindFn         func(pid ProcessID, set CPUSet, flags int) (int, syscall.Errno)
	getProcCPUBindFn         func(pid ProcessID, set *CPUSet, flags int) (int, syscall.Errno)
	setThreadCPUBindFn       func(tid ThreadID, set CPUSet, flags int) (int, syscall.Errno)
	getThreadCPUBindFn       func(tid ThreadID, set *CPUSet, flags int) (int, syscall.Errno)
	getLastCPULocationFn     func(set *CPUSet, flags int) (int, syscall.Errno)
	getProcLastCPULocationFn func(pid ProcessID, set *CPUSet, flags int) (int, syscall.Errno)

	setMemBindFn         func(set Bitmap, policy MemBindPolicy, flags int) (int, syscall.Errno)
	getMemBindFn         func(set *Bitmap, policy *MemBindPolicy, flags int) (int, syscall.Errno)
	setProcMemBindFn     func(pid ProcessID, set Bitmap, policy MemBindPolicy, flags int) (int, syscall.Errno)
	getProcMemBindFn     func(pid ProcessID, set *Bitmap, policy *MemBindPolicy, flags int) (int, syscall.Errno)
	setAreaMemBindFn     func(addr unsafe.Pointer, size uintptr, set Bitmap, policy MemBindPolicy, flags int) (int, syscall.Errno)
	getAreaMemBindFn     func(addr unsafe.Pointer, size uintptr, set *Bitmap, policy *MemBindPolicy, flags int) (int, syscall.Errno)
	getAreaMemLocationFn func(addr unsafe.Pointer, size uintptr, set *Bitmap, flags int) (int, syscall.Errno)
	allocFn              func(size uintptr) unsafe.Pointer
	allocMemBindFn       func(size uintptr, set Bitmap, policy MemBindPolicy, flags int) (unsafe.Pointer, syscall.Errno)
	freeFn               func(addr unsafe.Pointer, size uintptr) int

	depthForTypeFn      func(ot ObjectType) TypeDepth
	numObjectsAtDepthFn func(depth TypeDepth) int
	objectAtDepthFn     func(depth TypeDepth, index int) objref

	objs map[objref]*fakeObject

	destroyed bool
}

// fakeObject backs one objref handed out by a fakeNative.
type fakeObject struct {
	typ              ObjectType
	subtype          string
	osIndex          uint32
	name             string
	totalMemory      uint64
	depth            TypeDepth
	logicalIndex     uint32
	siblingRank      uint32
	symmetricSubtree bool
	links            map[objLink]objref
	children         []objref
	memoryArity      uint32
	ioArity          uint32
	miscArity        uint32
	cpuset           *CPUSet
	completeCPUSet   *CPUSet
	nodeset          *NodeSet
	completeNodeSet  *NodeSet
	infos            []Info
}

var _ nativeTopology = (*fakeNative)(nil)

// newFakeTopology wires a fakeNative into a Topology the way NewTopology
// wires the cgo implementation.
func newFakeTopology(native *fakeNative) *Topology {
	return &Topology{native: native}
}

// addObject registers obj and returns a unique objref for it.
func (f *fakeNative) addObject(obj *fakeObject) objref {
	if f.objs == nil {
		f.objs = make(map[objref]*fakeObject)
	}
	ref := objref(new(byte))
	f.objs[ref] = obj
	return ref
}

func (f *fakeNative) object(o objref) *fakeObject {
	obj, ok := f.objs[o]
	if !ok {
		panic("fakeNative: unknown object reference")
	}
	return obj
}

func unexpected(name string) string {
	return fmt.Sprintf("fakeNative: unexpected native call %s", name)
}

func (f *fakeNative) setCPUBind(set CPUSet, flags int) (int, syscall.Errno) {
	if f.setCPUBindFn == nil {
		panic(unexpected("setCPUBind"))
	}
	return f.setCPUBindFn(set, flags)
}

func (f *fakeNative) getCPUBind(set *CPUSet, flags int) (int, syscall.Errno) {
	if f.getCPUBindFn == nil {
		panic(unexpected("getCPUBind"))
	}
	return f.getCPUBindFn(set, flags)
}

func (f *fakeNative) setProcCPUBind(pid ProcessID, set CPUSet, flags int) (int, syscall.Errno) {
	if f.setProcCPUBindFn == nil {
		panic(unexpected("setProcCPUBind"))
	}
	return f.setProcCPUBindFn(pid, set, flags)
}

func (f *fakeNative) getProcCPUBind(pid ProcessID, set *CPUSet, flags int) (int, syscall.Errno) {
	if f.getProcCPUBindFn == nil {
		panic(unexpected("getProcCPUBind"))
	}
	return f.getProcCPUBindFn(pid, set, flags)
}

func (f *fakeNative) setThreadCPUBind(tid ThreadID, set CPUSet, flags int) (int, syscall.Errno) {
	if f.setThreadCPUBindFn == nil {
		panic(unexpected("setThreadCPUBind"))
	}
	return f.setThreadCPUBindFn(tid, set, flags)
}

func (f *fakeNative) getThreadCPUBind(tid ThreadID, set *CPUSet, flags int) (int, syscall.Errno) {
	if f.getThreadCPUBindFn == nil {
		panic(unexpected("getThreadCPUBind"))
	}
	return f.getThreadCPUBindFn(tid, set, flags)
}

func (f *fakeNative) getLastCPULocation(set *CPUSet, flags int) (int, syscall.Errno) {
	if f.getLastCPULocationFn == nil {
		panic(unexpected("getLastCPULocation"))
	}
	return f.getLastCPULocationFn(set, flags)
}

func (f *fakeNative) getProcLastCPULocation(pid ProcessID, set *CPUSet, flags int) (int, syscall.Errno) {
	if f.getProcLastCPULocationFn == nil {
		panic(unexpected("getProcLastCPULocation"))
	}
	return f.getProcLastCPULocationFn(pid, set, flags)
}

func (f *fakeNative) setMemBind(set Bitmap, policy MemBindPolicy, flags int) (int, syscall.Errno) {
	if f.setMemBindFn == nil {
		panic(unexpected("setMemBind"))
	}
	return f.setMemBindFn(set, policy, flags)
}

func (f *fakeNative) getMemBind(set *Bitmap, policy *MemBindPolicy, flags int) (int, syscall.Errno) {
	if f.getMemBindFn == nil {
		panic(unexpected("getMemBind"))
	}
	return f.getMemBindFn(set, policy, flags)
}

func (f *fakeNative) setProcMemBind(pid ProcessID, set Bitmap, policy MemBindPolicy, flags int) (int, syscall.Errno) {
	if f.setProcMemBindFn == nil {
		panic(unexpected("setProcMemBind"))
	}
	return f.setProcMemBindFn(pid, set, policy, flags)
}

func (f *fakeNative) getProcMemBind(pid ProcessID, set *Bitmap, policy *MemBindPolicy, flags int) (int, syscall.Errno) {
	if f.getProcMemBindFn == nil {
		panic(unexpected("getProcMemBind"))
	}
	return f.getProcMemBindFn(pid, set, policy, flags)
}

func (f *fakeNative) setAreaMemBind(addr unsafe.Pointer, size uintptr, set Bitmap, policy MemBindPolicy, flags int) (int, syscall.Errno) {
	if f.setAreaMemBindFn == nil {
		panic(unexpected("setAreaMemBind"))
	}
	return f.setAreaMemBindFn(addr, size, set, policy, flags)
}

func (f *fakeNative) getAreaMemBind(addr unsafe.Pointer, size uintptr, set *Bitmap, policy *MemBindPolicy, flags int) (int, syscall.Errno) {
	if f.getAreaMemBindFn == nil {
		panic(unexpected("getAreaMemBind"))
	}
	return f.getAreaMemBindFn(addr, size, set, policy, flags)
}

func (f *fakeNative) getAreaMemLocation(addr unsafe.Pointer, size uintptr, set *Bitmap, flags int) (int, syscall.Errno) {
	if f.getAreaMemLocationFn == nil {
		panic(unexpected("getAreaMemLocation"))
	}
	return f.getAreaMemLocationFn(addr, size, set, flags)
}

func (f *fakeNative) alloc(size uintptr) unsafe.Pointer {
	if f.allocFn == nil {
		panic(unexpected("alloc"))
	}
	return f.allocFn(size)
}

func (f *fakeNative) allocMemBind(size uintptr, set Bitmap, policy MemBindPolicy, flags int) (unsafe.Pointer, syscall.Errno) {
	if f.allocMemBindFn == nil {
		panic(unexpected("allocMemBind"))
	}
	return f.allocMemBindFn(size, set, policy, flags)
}

func (f *fakeNative) free(addr unsafe.Pointer, size uintptr) int {
	if f.freeFn == nil {
		panic(unexpected("free"))
	}
	return f.freeFn(addr, size)
}

func (f *fakeNative) depthForType(ot ObjectType) TypeDepth {
	if f.depthForTypeFn == nil {
		panic(unexpected("depthForType"))
	}
	return f.depthForTypeFn(ot)
}

func (f *fakeNative) numObjectsAtDepth(depth TypeDepth) int {
	if f.numObjectsAtDepthFn == nil {
		panic(unexpected("numObjectsAtDepth"))
	}
	return f.numObjectsAtDepthFn(depth)
}

func (f *fakeNative) objectAtDepth(depth TypeDepth, index int) objref {
	if f.objectAtDepthFn == nil {
		panic(unexpected("objectAtDepth"))
	}
	return f.objectAtDepthFn(depth, index)
}

func (f *fakeNative) objType(o objref) ObjectType     { return f.object(o).typ }
func (f *fakeNative) objSubtype(o objref) string      { return f.object(o).subtype }
func (f *fakeNative) objOSIndex(o objref) uint32      { return f.object(o).osIndex }
func (f *fakeNative) objName(o objref) string         { return f.object(o).name }
func (f *fakeNative) objTotalMemory(o objref) uint64  { return f.object(o).totalMemory }
func (f *fakeNative) objDepth(o objref) TypeDepth     { return f.object(o).depth }
func (f *fakeNative) objLogicalIndex(o objref) uint32 { return f.object(o).logicalIndex }
func (f *fakeNative) objSiblingRank(o objref) uint32  { return f.object(o).siblingRank }

func (f *fakeNative) objSymmetricSubtree(o objref) bool { return f.object(o).symmetricSubtree }

func (f *fakeNative) objArity(o objref) (normal, memory, io, misc uint32) {
	obj := f.object(o)
	return uint32(len(obj.children)), obj.memoryArity, obj.ioArity, obj.miscArity
}

func (f *fakeNative) objLink(o objref, l objLink) objref {
	return f.object(o).links[l]
}

func (f *fakeNative) objChild(o objref, index uint32) objref {
	obj := f.object(o)
	if int(index) >= len(obj.children) {
		return nil
	}
	return obj.children[index]
}

func (f *fakeNative) objCPUSet(o objref, complete bool) (CPUSet, bool) {
	obj := f.object(o)
	set := obj.cpuset
	if complete {
		set = obj.completeCPUSet
	}
	if set == nil {
		return CPUSet{}, false
	}
	return set.Clone(), true
}

func (f *fakeNative) objNodeSet(o objref, complete bool) (NodeSet, bool) {
	obj := f.object(o)
	set := obj.nodeset
	if complete {
		set = obj.completeNodeSet
	}
	if set == nil {
		return NodeSet{}, false
	}
	return set.Clone(), true
}

func (f *fakeNative) objInfos(o objref) []Info { return f.object(o).infos }

func (f *fakeNative) destroy() { f.destroyed = true }
