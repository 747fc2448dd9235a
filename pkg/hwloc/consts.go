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

import "strings"

// ProcessID identifies an OS process (a pid as passed to the hwloc_*_proc_*
// entry points).
type ProcessID int32

// ThreadID identifies an OS thread the way hwloc_thread_t does. On Linux this
// is a pthread_t, not a kernel tid; kernel tids are passed as a ProcessID to
// the process-addressed entry points together with CPUBIND_THREAD.
type ThreadID uint64

// CPUBindingFlags refine how a CPU binding request is applied. All flags can
// be OR'ed together except the binding target flags CPUBIND_PROCESS,
// CPUBIND_THREAD and CPUBIND_ASSUME_SINGLE_THREAD, which are mutually
// exclusive: functions that target the current program require exactly one of
// them, all other functions require none (on Linux, CPUBIND_THREAD may
// additionally be passed to process-addressed functions to rebind a thread by
// its kernel tid).
type CPUBindingFlags uint32

const (
	// CPUBIND_PROCESS binds all threads of the targeted process.
	CPUBIND_PROCESS CPUBindingFlags = 1 << 0
	// CPUBIND_THREAD binds the current thread of the current process.
	CPUBIND_THREAD CPUBindingFlags = 1 << 1
	// CPUBIND_STRICT requests that the binding fail rather than be
	// approximated when the OS cannot enforce it exactly. When querying the
	// binding of a process, it additionally requires all threads of the
	// process to have the same binding.
	CPUBIND_STRICT CPUBindingFlags = 1 << 2
	// CPUBIND_NOMEMBIND avoids OS functions that would also bind memory as a
	// side effect of binding CPUs, at the price of reduced binding support.
	// Only meaningful when setting a binding.
	CPUBIND_NOMEMBIND CPUBindingFlags = 1 << 3

	// CPUBIND_ASSUME_SINGLE_THREAD asserts that the current process is
	// single-threaded and lets the library pick whichever of thread and
	// process binding is most portable. It has no native equivalent and is
	// always stripped by validation before the native call.
	CPUBIND_ASSUME_SINGLE_THREAD CPUBindingFlags = 1 << 31

	cpuBindTargetFlags = CPUBIND_PROCESS | CPUBIND_THREAD | CPUBIND_ASSUME_SINGLE_THREAD
)

// String returns the flag set in "PROCESS|STRICT" form.
func (f CPUBindingFlags) String() string {
	names := []struct {
		bit  CPUBindingFlags
		name string
	}{
		{CPUBIND_PROCESS, "PROCESS"},
		{CPUBIND_THREAD, "THREAD"},
		{CPUBIND_STRICT, "STRICT"},
		{CPUBIND_NOMEMBIND, "NOMEMBIND"},
		{CPUBIND_ASSUME_SINGLE_THREAD, "ASSUME_SINGLE_THREAD"},
	}
	var set []string
	for _, n := range names {
		if f&n.bit != 0 {
			set = append(set, n.name)
			f &^= n.bit
		}
	}
	if f != 0 {
		set = append(set, "0x"+hexBits(uint32(f)))
	}
	if len(set) == 0 {
		return "0"
	}
	return strings.Join(set, "|")
}

// MemoryBindingFlags refine how a memory binding request is applied. All
// flags can be OR'ed together except MEMBIND_PROCESS and MEMBIND_THREAD,
// which are mutually exclusive.
type MemoryBindingFlags uint32

const (
	// MEMBIND_PROCESS applies the policy to all threads of the targeted
	// (possibly multithreaded) process.
	MEMBIND_PROCESS MemoryBindingFlags = 1 << 0
	// MEMBIND_THREAD applies the policy to the current thread of the current
	// process only.
	MEMBIND_THREAD MemoryBindingFlags = 1 << 1
	// MEMBIND_STRICT requests that the binding fail rather than be
	// approximated when it cannot be guaranteed or completely enforced.
	MEMBIND_STRICT MemoryBindingFlags = 1 << 2
	// MEMBIND_MIGRATE migrates already-allocated memory. If it cannot be
	// migrated and MEMBIND_STRICT is set, the request fails.
	MEMBIND_MIGRATE MemoryBindingFlags = 1 << 3
	// MEMBIND_NOCPUBIND avoids OS functions that would also bind the target
	// to the corresponding CPUs, at the price of reduced binding support.
	MEMBIND_NOCPUBIND MemoryBindingFlags = 1 << 4
	// MEMBIND_BYNODESET interprets the set argument as NUMA node indices
	// instead of processor indices. Binding by cpuset cannot address CPU-less
	// NUMA nodes, so binding by nodeset should be preferred when possible.
	MEMBIND_BYNODESET MemoryBindingFlags = 1 << 5
)

// String returns the flag set in "PROCESS|STRICT" form.
func (f MemoryBindingFlags) String() string {
	names := []struct {
		bit  MemoryBindingFlags
		name string
	}{
		{MEMBIND_PROCESS, "PROCESS"},
		{MEMBIND_THREAD, "THREAD"},
		{MEMBIND_STRICT, "STRICT"},
		{MEMBIND_MIGRATE, "MIGRATE"},
		{MEMBIND_NOCPUBIND, "NOCPUBIND"},
		{MEMBIND_BYNODESET, "BYNODESET"},
	}
	var set []string
	for _, n := range names {
		if f&n.bit != 0 {
			set = append(set, n.name)
			f &^= n.bit
		}
	}
	if f != 0 {
		set = append(set, "0x"+hexBits(uint32(f)))
	}
	if len(set) == 0 {
		return "0"
	}
	return strings.Join(set, "|")
}

func hexBits(v uint32) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for v != 0 {
		i--
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return string(buf[i:])
}

// MemBindPolicy selects how pages are placed on the NUMA nodes of a memory
// binding request. Values mirror hwloc_membind_policy_t.
type MemBindPolicy int32

const (
	// MEMBIND_DEFAULT resets the binding to the system default, which is
	// typically first-touch. Used to unbind.
	MEMBIND_DEFAULT MemBindPolicy = 0
	// MEMBIND_FIRSTTOUCH allocates each page on the local node of the first
	// thread that touches it.
	MEMBIND_FIRSTTOUCH MemBindPolicy = 1
	// MEMBIND_BIND allocates on the given nodes (the most portable policy).
	MEMBIND_BIND MemBindPolicy = 2
	// MEMBIND_INTERLEAVE allocates on the given nodes in a round-robin
	// manner, balancing memory references of concurrent readers.
	MEMBIND_INTERLEAVE MemBindPolicy = 3
	// MEMBIND_NEXTTOUCH moves each page to the local node of the next thread
	// touching it.
	MEMBIND_NEXTTOUCH MemBindPolicy = 4
	// MEMBIND_MIXED is only returned by queries, when the policies of the
	// threads or pages covered by the query differ.
	MEMBIND_MIXED MemBindPolicy = -1
)

// String returns the hwloc name of the policy.
func (p MemBindPolicy) String() string {
	switch p {
	case MEMBIND_DEFAULT:
		return "DEFAULT"
	case MEMBIND_FIRSTTOUCH:
		return "FIRSTTOUCH"
	case MEMBIND_BIND:
		return "BIND"
	case MEMBIND_INTERLEAVE:
		return "INTERLEAVE"
	case MEMBIND_NEXTTOUCH:
		return "NEXTTOUCH"
	case MEMBIND_MIXED:
		return "MIXED"
	}
	return "UNKNOWN"
}

// ObjectType identifies the kind of a topology object. Values mirror
// hwloc_obj_type_t.
type ObjectType int32

const (
	OBJ_MACHINE    ObjectType = 0
	OBJ_PACKAGE    ObjectType = 1
	OBJ_CORE       ObjectType = 2
	OBJ_PU         ObjectType = 3
	OBJ_L1CACHE    ObjectType = 4
	OBJ_L2CACHE    ObjectType = 5
	OBJ_L3CACHE    ObjectType = 6
	OBJ_L4CACHE    ObjectType = 7
	OBJ_L5CACHE    ObjectType = 8
	OBJ_L1ICACHE   ObjectType = 9
	OBJ_L2ICACHE   ObjectType = 10
	OBJ_L3ICACHE   ObjectType = 11
	OBJ_GROUP      ObjectType = 12
	OBJ_NUMANODE   ObjectType = 13
	OBJ_BRIDGE     ObjectType = 14
	OBJ_PCI_DEVICE ObjectType = 15
	OBJ_OS_DEVICE  ObjectType = 16
	OBJ_MISC       ObjectType = 17
	OBJ_MEMCACHE   ObjectType = 18
	OBJ_DIE        ObjectType = 19
)

var objectTypeNames = map[ObjectType]string{
	OBJ_MACHINE:    "Machine",
	OBJ_PACKAGE:    "Package",
	OBJ_CORE:       "Core",
	OBJ_PU:         "PU",
	OBJ_L1CACHE:    "L1Cache",
	OBJ_L2CACHE:    "L2Cache",
	OBJ_L3CACHE:    "L3Cache",
	OBJ_L4CACHE:    "L4Cache",
	OBJ_L5CACHE:    "L5Cache",
	OBJ_L1ICACHE:   "L1iCache",
	OBJ_L2ICACHE:   "L2iCache",
	OBJ_L3ICACHE:   "L3iCache",
	OBJ_GROUP:      "Group",
	OBJ_NUMANODE:   "NUMANode",
	OBJ_BRIDGE:     "Bridge",
	OBJ_PCI_DEVICE: "PCIDev",
	OBJ_OS_DEVICE:  "OSDev",
	OBJ_MISC:       "Misc",
	OBJ_MEMCACHE:   "MemCache",
	OBJ_DIE:        "Die",
}

// String returns the conventional hwloc spelling of the type.
func (t ObjectType) String() string {
	if name, ok := objectTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// IsNormal reports whether objects of this type live in the main children
// tree, as opposed to the memory, I/O and Misc side lists.
func (t ObjectType) IsNormal() bool {
	return t >= OBJ_MACHINE && t <= OBJ_GROUP || t == OBJ_DIE
}

// IsMemory reports whether objects of this type live in the memory side list.
func (t ObjectType) IsMemory() bool {
	return t == OBJ_NUMANODE || t == OBJ_MEMCACHE
}

// IsIO reports whether objects of this type live in the I/O side list.
func (t ObjectType) IsIO() bool {
	return t == OBJ_BRIDGE || t == OBJ_PCI_DEVICE || t == OBJ_OS_DEVICE
}

// IsCache reports whether the type is a data, instruction or unified CPU
// cache (memory-side caches are not included).
func (t ObjectType) IsCache() bool {
	return t >= OBJ_L1CACHE && t <= OBJ_L3ICACHE
}

// TypeDepth is a vertical level of the topology tree. Non-negative values are
// depths of normal levels; special objects that live outside the main tree
// (NUMA nodes, I/O, Misc, memory-side caches) use dedicated negative values,
// which are valid depths for object enumeration.
type TypeDepth int32

const (
	// TypeDepthUnknown means no object of the requested type exists.
	TypeDepthUnknown TypeDepth = -1
	// TypeDepthMultiple means objects of the requested type exist at several
	// depths (possible for Group objects).
	TypeDepthMultiple TypeDepth = -2
	// TypeDepthNUMANode is the virtual depth of the NUMA node level.
	TypeDepthNUMANode TypeDepth = -3
	// TypeDepthBridge is the virtual depth of the bridge level.
	TypeDepthBridge TypeDepth = -4
	// TypeDepthPCIDevice is the virtual depth of the PCI device level.
	TypeDepthPCIDevice TypeDepth = -5
	// TypeDepthOSDevice is the virtual depth of the OS device level.
	TypeDepthOSDevice TypeDepth = -6
	// TypeDepthMisc is the virtual depth of the Misc level.
	TypeDepthMisc TypeDepth = -7
	// TypeDepthMemCache is the virtual depth of the memory-side cache level.
	TypeDepthMemCache TypeDepth = -8
)
