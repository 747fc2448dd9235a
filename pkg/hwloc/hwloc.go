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

/*
#cgo LDFLAGS: -Wl,--unresolved-symbols=ignore-in-object-files

#include <stddef.h>
#include <stdint.h>
#include <sys/types.h>

typedef struct hwloc_topology *hwloc_topology_t;
typedef struct hwloc_bitmap_s *hwloc_bitmap_t;
typedef const struct hwloc_bitmap_s *hwloc_const_bitmap_t;
typedef int hwloc_obj_type_t;
typedef int hwloc_membind_policy_t;
typedef pid_t hwloc_pid_t;
typedef unsigned long hwloc_thread_t;

struct hwloc_info_s {
	char *name;
	char *value;
};

// Mirrors the layout the library allocates; only fields read on the Go side
// matter, but the full sequence must be declared to keep offsets right.
struct hwloc_obj {
	hwloc_obj_type_t type;
	char *subtype;
	unsigned os_index;
	char *name;
	uint64_t total_memory;
	void *attr;

	int depth;
	unsigned logical_index;

	struct hwloc_obj *next_cousin;
	struct hwloc_obj *prev_cousin;

	struct hwloc_obj *parent;
	unsigned sibling_rank;
	struct hwloc_obj *next_sibling;
	struct hwloc_obj *prev_sibling;

	unsigned arity;
	struct hwloc_obj **children;
	struct hwloc_obj *first_child;
	struct hwloc_obj *last_child;
	int symmetric_subtree;

	unsigned memory_arity;
	struct hwloc_obj *memory_first_child;

	unsigned io_arity;
	struct hwloc_obj *io_first_child;

	unsigned misc_arity;
	struct hwloc_obj *misc_first_child;

	hwloc_bitmap_t cpuset;
	hwloc_bitmap_t complete_cpuset;
	hwloc_bitmap_t nodeset;
	hwloc_bitmap_t complete_nodeset;

	struct hwloc_info_s *infos;
	unsigned infos_count;

	void *userdata;
	uint64_t gp_index;
};
typedef struct hwloc_obj *hwloc_obj_t;

int hwloc_topology_init(hwloc_topology_t *topology);
int hwloc_topology_load(hwloc_topology_t topology);
void hwloc_topology_destroy(hwloc_topology_t topology);

int hwloc_set_cpubind(hwloc_topology_t topology, hwloc_const_bitmap_t set, int flags);
int hwloc_get_cpubind(hwloc_topology_t topology, hwloc_bitmap_t set, int flags);
int hwloc_set_proc_cpubind(hwloc_topology_t topology, hwloc_pid_t pid, hwloc_const_bitmap_t set, int flags);
int hwloc_get_proc_cpubind(hwloc_topology_t topology, hwloc_pid_t pid, hwloc_bitmap_t set, int flags);
int hwloc_set_thread_cpubind(hwloc_topology_t topology, hwloc_thread_t thread, hwloc_const_bitmap_t set, int flags);
int hwloc_get_thread_cpubind(hwloc_topology_t topology, hwloc_thread_t thread, hwloc_bitmap_t set, int flags);
int hwloc_get_last_cpu_location(hwloc_topology_t topology, hwloc_bitmap_t set, int flags);
int hwloc_get_proc_last_cpu_location(hwloc_topology_t topology, hwloc_pid_t pid, hwloc_bitmap_t set, int flags);

int hwloc_set_membind(hwloc_topology_t topology, hwloc_const_bitmap_t set, hwloc_membind_policy_t policy, int flags);
int hwloc_get_membind(hwloc_topology_t topology, hwloc_bitmap_t set, hwloc_membind_policy_t *policy, int flags);
int hwloc_set_proc_membind(hwloc_topology_t topology, hwloc_pid_t pid, hwloc_const_bitmap_t set, hwloc_membind_policy_t policy, int flags);
int hwloc_get_proc_membind(hwloc_topology_t topology, hwloc_pid_t pid, hwloc_bitmap_t set, hwloc_membind_policy_t *policy, int flags);
int hwloc_set_area_membind(hwloc_topology_t topology, const void *addr, size_t len, hwloc_const_bitmap_t set, hwloc_membind_policy_t policy, int flags);
int hwloc_get_area_membind(hwloc_topology_t topology, const void *addr, size_t len, hwloc_bitmap_t set, hwloc_membind_policy_t *policy, int flags);
int hwloc_get_area_memlocation(hwloc_topology_t topology, const void *addr, size_t len, hwloc_bitmap_t set, int flags);
void *hwloc_alloc(hwloc_topology_t topology, size_t len);
void *hwloc_alloc_membind(hwloc_topology_t topology, size_t len, hwloc_const_bitmap_t set, hwloc_membind_policy_t policy, int flags);
int hwloc_free(hwloc_topology_t topology, void *addr, size_t len);

int hwloc_get_type_depth(hwloc_topology_t topology, hwloc_obj_type_t type);
unsigned hwloc_get_nbobjs_by_depth(hwloc_topology_t topology, int depth);
hwloc_obj_t hwloc_get_obj_by_depth(hwloc_topology_t topology, int depth, unsigned idx);

hwloc_bitmap_t hwloc_bitmap_alloc(void);
void hwloc_bitmap_free(hwloc_bitmap_t bitmap);
int hwloc_bitmap_set_ith_ulong(hwloc_bitmap_t bitmap, unsigned i, unsigned long mask);
int hwloc_bitmap_nr_ulongs(hwloc_const_bitmap_t bitmap);
int hwloc_bitmap_to_ulongs(hwloc_const_bitmap_t bitmap, unsigned nr, unsigned long *masks);
int hwloc_bitmap_last(hwloc_const_bitmap_t bitmap);
*/
import "C"

import (
	"fmt"
	"syscall"
	"unsafe"
)

// hwlocTopology is the production nativeTopology, calling straight into the
// dynamically loaded library. Callers hold the only reference to the handle;
// the library is not informed of Go-side sharing, so all synchronization is
// Topology's responsibility.
type hwlocTopology struct {
	handle C.hwloc_topology_t
}

var _ nativeTopology = (*hwlocTopology)(nil)

// newNativeTopology builds and loads a fresh topology of the current system.
// The library must already have been loaded with Init.
func newNativeTopology() (*hwlocTopology, error) {
	var handle C.hwloc_topology_t
	if ret := C.hwloc_topology_init(&handle); ret != 0 {
		return nil, fmt.Errorf("hwloc_topology_init failed with %d", int(ret))
	}
	if ret := C.hwloc_topology_load(handle); ret != 0 {
		C.hwloc_topology_destroy(handle)
		return nil, fmt.Errorf("hwloc_topology_load failed with %d", int(ret))
	}
	return &hwlocTopology{handle: handle}, nil
}

func (n *hwlocTopology) destroy() {
	C.hwloc_topology_destroy(n.handle)
}

// errnoOf extracts the errno captured by a cgo call. The value is only
// meaningful when the call itself reported failure.
func errnoOf(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	if errno, ok := err.(syscall.Errno); ok {
		return errno
	}
	return syscall.EIO
}

// toNativeBitmap copies a word-backed set into a freshly allocated native
// bitmap. The caller frees it.
func toNativeBitmap(b Bitmap) C.hwloc_bitmap_t {
	bm := C.hwloc_bitmap_alloc()
	for i, word := range b.words() {
		C.hwloc_bitmap_set_ith_ulong(bm, C.uint(i), C.ulong(word))
	}
	return bm
}

// fromNativeBitmap copies a native bitmap back out. Infinitely-set bitmaps
// are truncated at their last set index; topology and binding sets are
// always finite in practice.
func fromNativeBitmap(bm C.hwloc_bitmap_t) Bitmap {
	words := int(C.hwloc_bitmap_nr_ulongs(bm))
	if words < 0 {
		last := int(C.hwloc_bitmap_last(bm))
		if last < 0 {
			return nil
		}
		words = last/bitsPerWord + 1
	}
	if words == 0 {
		return nil
	}
	raw := make([]C.ulong, words)
	C.hwloc_bitmap_to_ulongs(bm, C.uint(words), &raw[0])
	b := make(Bitmap, words)
	for i, word := range raw {
		b[i] = uint64(word)
	}
	return b
}

func (n *hwlocTopology) setCPUBind(set CPUSet, flags int) (int, syscall.Errno) {
	bm := toNativeBitmap(set.Bitmap)
	defer C.hwloc_bitmap_free(bm)
	ret, err := C.hwloc_set_cpubind(n.handle, bm, C.int(flags))
	return int(ret), errnoOf(err)
}

func (n *hwlocTopology) getCPUBind(set *CPUSet, flags int) (int, syscall.Errno) {
	bm := C.hwloc_bitmap_alloc()
	defer C.hwloc_bitmap_free(bm)
	ret, err := C.hwloc_get_cpubind(n.handle, bm, C.int(flags))
	if ret >= 0 {
		set.Bitmap = fromNativeBitmap(bm)
	}
	return int(ret), errnoOf(err)
}

func (n *hwlocTopology) setProcCPUBind(pid ProcessID, set CPUSet, flags int) (int, syscall.Errno) {
	bm := toNativeBitmap(set.Bitmap)
	defer C.hwloc_bitmap_free(bm)
	ret, err := C.hwloc_set_proc_cpubind(n.handle, C.hwloc_pid_t(pid), bm, C.int(flags))
	return int(ret), errnoOf(err)
}

func (n *hwlocTopology) getProcCPUBind(pid ProcessID, set *CPUSet, flags int) (int, syscall.Errno) {
	bm := C.hwloc_bitmap_alloc()
	defer C.hwloc_bitmap_free(bm)
	ret, err := C.hwloc_get_proc_cpubind(n.handle, C.hwloc_pid_t(pid), bm, C.int(flags))
	if ret >= 0 {
		set.Bitmap = fromNativeBitmap(bm)
	}
	return int(ret), errnoOf(err)
}

func (n *hwlocTopology) setThreadCPUBind(tid ThreadID, set CPUSet, flags int) (int, syscall.Errno) {
	bm := toNativeBitmap(set.Bitmap)
	defer C.hwloc_bitmap_free(bm)
	ret, err := C.hwloc_set_thread_cpubind(n.handle, C.hwloc_thread_t(tid), bm, C.int(flags))
	return int(ret), errnoOf(err)
}

func (n *hwlocTopology) getThreadCPUBind(tid ThreadID, set *CPUSet, flags int) (int, syscall.Errno) {
	bm := C.hwloc_bitmap_alloc()
	defer C.hwloc_bitmap_free(bm)
	ret, err := C.hwloc_get_thread_cpubind(n.handle, C.hwloc_thread_t(tid), bm, C.int(flags))
	if ret >= 0 {
		set.Bitmap = fromNativeBitmap(bm)
	}
	return int(ret), errnoOf(err)
}

func (n *hwlocTopology) getLastCPULocation(set *CPUSet, flags int) (int, syscall.Errno) {
	bm := C.hwloc_bitmap_alloc()
	defer C.hwloc_bitmap_free(bm)
	ret, err := C.hwloc_get_last_cpu_location(n.handle, bm, C.int(flags))
	if ret >= 0 {
		set.Bitmap = fromNativeBitmap(bm)
	}
	return int(ret), errnoOf(err)
}

func (n *hwlocTopology) getProcLastCPULocation(pid ProcessID, set *CPUSet, flags int) (int, syscall.Errno) {
	bm := C.hwloc_bitmap_alloc()
	defer C.hwloc_bitmap_free(bm)
	ret, err := C.hwloc_get_proc_last_cpu_location(n.handle, C.hwloc_pid_t(pid), bm, C.int(flags))
	if ret >= 0 {
		set.Bitmap = fromNativeBitmap(bm)
	}
	return int(ret), errnoOf(err)
}

func (n *hwlocTopology) setMemBind(set Bitmap, policy MemBindPolicy, flags int) (int, syscall.Errno) {
	bm := toNativeBitmap(set)
	defer C.hwloc_bitmap_free(bm)
	ret, err := C.hwloc_set_membind(n.handle, bm, C.hwloc_membind_policy_t(policy), C.int(flags))
	return int(ret), errnoOf(err)
}

func (n *hwlocTopology) getMemBind(set *Bitmap, policy *MemBindPolicy, flags int) (int, syscall.Errno) {
	bm := C.hwloc_bitmap_alloc()
	defer C.hwloc_bitmap_free(bm)
	var pol C.hwloc_membind_policy_t
	ret, err := C.hwloc_get_membind(n.handle, bm, &pol, C.int(flags))
	if ret >= 0 {
		*set = fromNativeBitmap(bm)
		*policy = MemBindPolicy(pol)
	}
	return int(ret), errnoOf(err)
}

func (n *hwlocTopology) setProcMemBind(pid ProcessID, set Bitmap, policy MemBindPolicy, flags int) (int, syscall.Errno) {
	bm := toNativeBitmap(set)
	defer C.hwloc_bitmap_free(bm)
	ret, err := C.hwloc_set_proc_membind(n.handle, C.hwloc_pid_t(pid), bm, C.hwloc_membind_policy_t(policy), C.int(flags))
	return int(ret), errnoOf(err)
}

func (n *hwlocTopology) getProcMemBind(pid ProcessID, set *Bitmap, policy *MemBindPolicy, flags int) (int, syscall.Errno) {
	bm := C.hwloc_bitmap_alloc()
	defer C.hwloc_bitmap_free(bm)
	var pol C.hwloc_membind_policy_t
	ret, err := C.hwloc_get_proc_membind(n.handle, C.hwloc_pid_t(pid), bm, &pol, C.int(flags))
	if ret >= 0 {
		*set = fromNativeBitmap(bm)
		*policy = MemBindPolicy(pol)
	}
	return int(ret), errnoOf(err)
}

func (n *hwlocTopology) setAreaMemBind(addr unsafe.Pointer, size uintptr, set Bitmap, policy MemBindPolicy, flags int) (int, syscall.Errno) {
	bm := toNativeBitmap(set)
	defer C.hwloc_bitmap_free(bm)
	ret, err := C.hwloc_set_area_membind(n.handle, addr, C.size_t(size), bm, C.hwloc_membind_policy_t(policy), C.int(flags))
	return int(ret), errnoOf(err)
}

func (n *hwlocTopology) getAreaMemBind(addr unsafe.Pointer, size uintptr, set *Bitmap, policy *MemBindPolicy, flags int) (int, syscall.Errno) {
	bm := C.hwloc_bitmap_alloc()
	defer C.hwloc_bitmap_free(bm)
	var pol C.hwloc_membind_policy_t
	ret, err := C.hwloc_get_area_membind(n.handle, addr, C.size_t(size), bm, &pol, C.int(flags))
	if ret >= 0 {
		*set = fromNativeBitmap(bm)
		*policy = MemBindPolicy(pol)
	}
	return int(ret), errnoOf(err)
}

func (n *hwlocTopology) getAreaMemLocation(addr unsafe.Pointer, size uintptr, set *Bitmap, flags int) (int, syscall.Errno) {
	bm := C.hwloc_bitmap_alloc()
	defer C.hwloc_bitmap_free(bm)
	ret, err := C.hwloc_get_area_memlocation(n.handle, addr, C.size_t(size), bm, C.int(flags))
	if ret >= 0 {
		*set = fromNativeBitmap(bm)
	}
	return int(ret), errnoOf(err)
}

func (n *hwlocTopology) alloc(size uintptr) unsafe.Pointer {
	return C.hwloc_alloc(n.handle, C.size_t(size))
}

func (n *hwlocTopology) allocMemBind(size uintptr, set Bitmap, policy MemBindPolicy, flags int) (unsafe.Pointer, syscall.Errno) {
	bm := toNativeBitmap(set)
	defer C.hwloc_bitmap_free(bm)
	addr, err := C.hwloc_alloc_membind(n.handle, C.size_t(size), bm, C.hwloc_membind_policy_t(policy), C.int(flags))
	return addr, errnoOf(err)
}

func (n *hwlocTopology) free(addr unsafe.Pointer, size uintptr) int {
	return int(C.hwloc_free(n.handle, addr, C.size_t(size)))
}

func (n *hwlocTopology) depthForType(ot ObjectType) TypeDepth {
	return TypeDepth(C.hwloc_get_type_depth(n.handle, C.hwloc_obj_type_t(ot)))
}

func (n *hwlocTopology) numObjectsAtDepth(depth TypeDepth) int {
	return int(C.hwloc_get_nbobjs_by_depth(n.handle, C.int(depth)))
}

func (n *hwlocTopology) objectAtDepth(depth TypeDepth, index int) objref {
	return objref(C.hwloc_get_obj_by_depth(n.handle, C.int(depth), C.uint(index)))
}

func nobj(o objref) *C.struct_hwloc_obj {
	return (*C.struct_hwloc_obj)(o)
}

func goString(s *C.char) string {
	if s == nil {
		return ""
	}
	return C.GoString(s)
}

func (n *hwlocTopology) objType(o objref) ObjectType {
	return ObjectType(nobj(o)._type)
}

func (n *hwlocTopology) objSubtype(o objref) string {
	return goString(nobj(o).subtype)
}

func (n *hwlocTopology) objOSIndex(o objref) uint32 {
	return uint32(nobj(o).os_index)
}

func (n *hwlocTopology) objName(o objref) string {
	return goString(nobj(o).name)
}

func (n *hwlocTopology) objTotalMemory(o objref) uint64 {
	return uint64(nobj(o).total_memory)
}

func (n *hwlocTopology) objDepth(o objref) TypeDepth {
	return TypeDepth(nobj(o).depth)
}

func (n *hwlocTopology) objLogicalIndex(o objref) uint32 {
	return uint32(nobj(o).logical_index)
}

func (n *hwlocTopology) objSiblingRank(o objref) uint32 {
	return uint32(nobj(o).sibling_rank)
}

func (n *hwlocTopology) objSymmetricSubtree(o objref) bool {
	return nobj(o).symmetric_subtree != 0
}

func (n *hwlocTopology) objArity(o objref) (normal, memory, io, misc uint32) {
	obj := nobj(o)
	return uint32(obj.arity), uint32(obj.memory_arity), uint32(obj.io_arity), uint32(obj.misc_arity)
}

func (n *hwlocTopology) objLink(o objref, l objLink) objref {
	obj := nobj(o)
	switch l {
	case linkParent:
		return objref(obj.parent)
	case linkNextCousin:
		return objref(obj.next_cousin)
	case linkPrevCousin:
		return objref(obj.prev_cousin)
	case linkNextSibling:
		return objref(obj.next_sibling)
	case linkPrevSibling:
		return objref(obj.prev_sibling)
	case linkFirstChild:
		return objref(obj.first_child)
	case linkLastChild:
		return objref(obj.last_child)
	case linkMemoryFirstChild:
		return objref(obj.memory_first_child)
	case linkIOFirstChild:
		return objref(obj.io_first_child)
	case linkMiscFirstChild:
		return objref(obj.misc_first_child)
	}
	return nil
}

func (n *hwlocTopology) objChild(o objref, index uint32) objref {
	obj := nobj(o)
	if obj.children == nil || index >= uint32(obj.arity) {
		return nil
	}
	children := unsafe.Slice(obj.children, int(obj.arity))
	return objref(children[index])
}

func (n *hwlocTopology) objCPUSet(o objref, complete bool) (CPUSet, bool) {
	obj := nobj(o)
	bm := obj.cpuset
	if complete {
		bm = obj.complete_cpuset
	}
	if bm == nil {
		return CPUSet{}, false
	}
	return CPUSet{Bitmap: fromNativeBitmap(bm)}, true
}

func (n *hwlocTopology) objNodeSet(o objref, complete bool) (NodeSet, bool) {
	obj := nobj(o)
	bm := obj.nodeset
	if complete {
		bm = obj.complete_nodeset
	}
	if bm == nil {
		return NodeSet{}, false
	}
	return NodeSet{Bitmap: fromNativeBitmap(bm)}, true
}

func (n *hwlocTopology) objInfos(o objref) []Info {
	obj := nobj(o)
	count := int(obj.infos_count)
	if count == 0 || obj.infos == nil {
		return nil
	}
	raw := unsafe.Slice(obj.infos, count)
	infos := make([]Info, 0, count)
	for i := range raw {
		infos = append(infos, Info{Name: goString(raw[i].name), Value: goString(raw[i].value)})
	}
	return infos
}
