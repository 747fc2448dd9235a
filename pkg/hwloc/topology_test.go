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
	"testing"

	"github.com/stretchr/testify/require"
)

// buildFakeMachine wires a machine with two packages of two cores each into
// a fakeNative, with the linked lists and depth queries the traversal API
// walks.
func buildFakeMachine() (*fakeNative, objref) {
	native := &fakeNative{}

	cores := make([]objref, 4)
	for i := range cores {
		cores[i] = native.addObject(&fakeObject{
			typ:          OBJ_CORE,
			osIndex:      uint32(i),
			depth:        2,
			logicalIndex: uint32(i),
			siblingRank:  uint32(i % 2),
			cpuset:       ptrTo(NewCPUSet(uint(i))),
			links:        map[objLink]objref{},
		})
	}
	packages := make([]objref, 2)
	for i := range packages {
		packages[i] = native.addObject(&fakeObject{
			typ:          OBJ_PACKAGE,
			osIndex:      uint32(i),
			depth:        1,
			logicalIndex: uint32(i),
			siblingRank:  uint32(i),
			children:     cores[i*2 : i*2+2],
			cpuset:       ptrTo(NewCPUSet(uint(i*2), uint(i*2+1))),
			links:        map[objLink]objref{},
		})
	}
	numa := native.addObject(&fakeObject{
		typ:          OBJ_NUMANODE,
		osIndex:      0,
		depth:        TypeDepthNUMANode,
		totalMemory:  64 << 30,
		nodeset:      ptrTo(NewNodeSet(0)),
		completeNodeSet: ptrTo(NewNodeSet(0)),
		links:        map[objLink]objref{},
	})
	root := native.addObject(&fakeObject{
		typ:              OBJ_MACHINE,
		osIndex:          ^uint32(0),
		depth:            0,
		symmetricSubtree: true,
		children:         packages,
		memoryArity:      1,
		cpuset:           ptrTo(NewCPUSet(0, 1, 2, 3)),
		completeCPUSet:   ptrTo(NewCPUSet(0, 1, 2, 3)),
		nodeset:          ptrTo(NewNodeSet(0)),
		completeNodeSet:  ptrTo(NewNodeSet(0)),
		infos: []Info{
			{Name: "Backend", Value: "Linux"},
			{Name: "OSName", Value: "Linux"},
		},
		links: map[objLink]objref{linkMemoryFirstChild: numa},
	})

	for i, p := range packages {
		native.objs[p].links[linkParent] = root
		if i+1 < len(packages) {
			native.objs[p].links[linkNextSibling] = packages[i+1]
			native.objs[p].links[linkNextCousin] = packages[i+1]
			native.objs[packages[i+1]].links[linkPrevSibling] = p
			native.objs[packages[i+1]].links[linkPrevCousin] = p
		}
	}
	for i, c := range cores {
		native.objs[c].links[linkParent] = packages[i/2]
		if i+1 < len(cores) {
			native.objs[c].links[linkNextCousin] = cores[i+1]
			native.objs[cores[i+1]].links[linkPrevCousin] = c
		}
	}
	native.objs[numa].links[linkParent] = root

	levels := [][]objref{{root}, packages, cores}
	native.objectAtDepthFn = func(depth TypeDepth, index int) objref {
		if depth == TypeDepthNUMANode {
			if index == 0 {
				return numa
			}
			return nil
		}
		if depth < 0 || int(depth) >= len(levels) || index >= len(levels[depth]) {
			return nil
		}
		return levels[depth][index]
	}
	native.numObjectsAtDepthFn = func(depth TypeDepth) int {
		if depth == TypeDepthNUMANode {
			return 1
		}
		if depth < 0 || int(depth) >= len(levels) {
			return 0
		}
		return len(levels[depth])
	}
	native.depthForTypeFn = func(ot ObjectType) TypeDepth {
		switch ot {
		case OBJ_MACHINE:
			return 0
		case OBJ_PACKAGE:
			return 1
		case OBJ_CORE:
			return 2
		case OBJ_NUMANODE:
			return TypeDepthNUMANode
		case OBJ_GROUP:
			return TypeDepthMultiple
		}
		return TypeDepthUnknown
	}

	return native, root
}

func TestDepthForType(t *testing.T) {
	native, _ := buildFakeMachine()
	topo := newFakeTopology(native)

	depth, err := topo.DepthForType(OBJ_CORE)
	require.NoError(t, err)
	require.Equal(t, TypeDepth(2), depth)

	depth, err = topo.DepthForType(OBJ_NUMANODE)
	require.NoError(t, err)
	require.Equal(t, TypeDepthNUMANode, depth)

	_, err = topo.DepthForType(OBJ_L3CACHE)
	require.ErrorIs(t, err, ErrTypeNonexistent)

	_, err = topo.DepthForType(OBJ_GROUP)
	require.ErrorIs(t, err, ErrTypeDepthMultiple)
}

func TestNumObjectsByType(t *testing.T) {
	native, _ := buildFakeMachine()
	topo := newFakeTopology(native)

	require.Equal(t, 4, topo.NumObjectsByType(OBJ_CORE))
	require.Equal(t, 2, topo.NumObjectsByType(OBJ_PACKAGE))
	require.Equal(t, 1, topo.NumObjectsByType(OBJ_NUMANODE))
	require.Equal(t, 0, topo.NumObjectsByType(OBJ_L3CACHE))
}

func TestRootAndCompleteSets(t *testing.T) {
	native, _ := buildFakeMachine()
	topo := newFakeTopology(native)

	root := topo.Root()
	require.Equal(t, OBJ_MACHINE, root.Type())
	require.True(t, root.SymmetricSubtree())

	_, known := root.OSIndex()
	require.False(t, known, "machines have no OS index")

	require.True(t, topo.CompleteCPUSet().Equal(NewCPUSet(0, 1, 2, 3)))
	require.True(t, topo.CompleteNodeSet().Equal(NewNodeSet(0)))
}

func TestObjectTraversal(t *testing.T) {
	native, _ := buildFakeMachine()
	topo := newFakeTopology(native)

	root := topo.Root()
	require.Equal(t, 2, root.NormalArity())
	require.Equal(t, 1, root.MemoryArity())

	packages := root.Children()
	require.Len(t, packages, 2)
	require.Equal(t, OBJ_PACKAGE, packages[0].Type())

	// Walking cousins at the core level visits every core once.
	core, ok := topo.ObjectAtDepth(2, 0)
	require.True(t, ok)
	visited := 0
	for {
		visited++
		core, ok = core.NextCousin()
		if !ok {
			break
		}
	}
	require.Equal(t, 4, visited)

	parent, ok := packages[1].Parent()
	require.True(t, ok)
	require.Equal(t, OBJ_MACHINE, parent.Type())

	memory := root.MemoryChildren()
	require.Len(t, memory, 1)
	require.Equal(t, OBJ_NUMANODE, memory[0].Type())
	require.Equal(t, uint64(64<<30), memory[0].TotalMemory())
}

func TestObjectSets(t *testing.T) {
	native, _ := buildFakeMachine()
	topo := newFakeTopology(native)

	pkg, ok := topo.ObjectAtDepth(1, 1)
	require.True(t, ok)
	set, ok := pkg.CPUSet()
	require.True(t, ok)
	require.True(t, set.Equal(NewCPUSet(2, 3)))

	// Packages in this fake carry no nodeset, like I/O objects would not.
	_, ok = pkg.NodeSet()
	require.False(t, ok)
}

func TestObjectInfos(t *testing.T) {
	native, _ := buildFakeMachine()
	topo := newFakeTopology(native)

	root := topo.Root()
	require.Len(t, root.Infos(), 2)

	value, ok := root.InfoValue("Backend")
	require.True(t, ok)
	require.Equal(t, "Linux", value)

	_, ok = root.InfoValue("CPUModel")
	require.False(t, ok)
}

func TestObjectString(t *testing.T) {
	native, _ := buildFakeMachine()
	topo := newFakeTopology(native)

	core, ok := topo.ObjectAtDepth(2, 3)
	require.True(t, ok)
	require.Equal(t, "Core L#3 P#3", core.String())
	require.Equal(t, "Machine L#0", topo.Root().String())
}

func TestDestroy(t *testing.T) {
	native, _ := buildFakeMachine()
	topo := newFakeTopology(native)
	topo.Destroy()
	require.True(t, native.destroyed)
	require.Nil(t, topo.native)
}
