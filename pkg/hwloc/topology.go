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

import "errors"

// Topology is a loaded hardware topology: the object graph discovered by the
// native library plus the CPU and memory binding entry points that operate
// against it.
//
// A Topology is not synchronized. Concurrent use from multiple goroutines
// must either be read-only where the native library documents that as safe,
// or externally serialized.
type Topology struct {
	native nativeTopology
}

// Destroy releases the native topology. The topology, its objects and any
// allocations obtained from it must not be used afterwards; allocations must
// be freed first.
func (t *Topology) Destroy() {
	t.native.destroy()
	t.native = nil
}

var (
	// ErrTypeNonexistent: no object of the requested type exists in the
	// topology.
	ErrTypeNonexistent = errors.New("no object of the requested type exists")
	// ErrTypeDepthMultiple: objects of the requested type exist at several
	// depths (possible for Group objects), so no single depth describes them.
	ErrTypeDepthMultiple = errors.New("objects of the requested type exist at multiple depths")
)

// DepthForType returns the depth of the level containing all objects of the
// given type. Types that live outside the main tree (NUMA nodes, I/O, Misc,
// memory-side caches) report their dedicated virtual depth.
func (t *Topology) DepthForType(ot ObjectType) (TypeDepth, error) {
	depth := t.native.depthForType(ot)
	switch depth {
	case TypeDepthUnknown:
		return depth, ErrTypeNonexistent
	case TypeDepthMultiple:
		return depth, ErrTypeDepthMultiple
	}
	return depth, nil
}

// NumObjectsAtDepth returns the number of objects on the given level.
func (t *Topology) NumObjectsAtDepth(depth TypeDepth) int {
	return t.native.numObjectsAtDepth(depth)
}

// NumObjectsByType returns the number of objects of the given type, or 0 if
// there are none. Unlike DepthForType this also counts types spread over
// multiple depths.
func (t *Topology) NumObjectsByType(ot ObjectType) int {
	depth, err := t.DepthForType(ot)
	switch {
	case err == nil:
		return t.NumObjectsAtDepth(depth)
	case errors.Is(err, ErrTypeDepthMultiple):
		n := 0
		for d := TypeDepth(0); ; d++ {
			count := t.native.numObjectsAtDepth(d)
			if count == 0 {
				return n
			}
			if obj := t.native.objectAtDepth(d, 0); obj != nil && t.native.objType(obj) == ot {
				n += count
			}
		}
	}
	return 0
}

// ObjectAtDepth returns the object with the given logical index on the given
// level.
func (t *Topology) ObjectAtDepth(depth TypeDepth, index int) (Object, bool) {
	ref := t.native.objectAtDepth(depth, index)
	if ref == nil {
		return Object{}, false
	}
	return Object{t: t, ref: ref}, true
}

// ObjectsAtDepth returns all objects on the given level in logical order.
func (t *Topology) ObjectsAtDepth(depth TypeDepth) []Object {
	n := t.NumObjectsAtDepth(depth)
	objs := make([]Object, 0, n)
	for i := 0; i < n; i++ {
		if obj, ok := t.ObjectAtDepth(depth, i); ok {
			objs = append(objs, obj)
		}
	}
	return objs
}

// Root returns the root object of the topology tree (the Machine object).
func (t *Topology) Root() Object {
	obj, ok := t.ObjectAtDepth(0, 0)
	if !ok {
		panic("hwloc: topology has no root object")
	}
	return obj
}

// CompleteCPUSet returns the complete CPU set of the topology, including
// offline and disallowed PUs. Binding to it effectively unbinds.
func (t *Topology) CompleteCPUSet() CPUSet {
	set, _ := t.Root().CompleteCPUSet()
	return set
}

// CompleteNodeSet returns the complete NUMA node set of the topology.
func (t *Topology) CompleteNodeSet() NodeSet {
	set, _ := t.Root().CompleteNodeSet()
	return set
}
