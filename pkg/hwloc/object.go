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

import "fmt"

// Object is one node of the topology tree: a package, core, PU, NUMA node,
// cache, I/O or Misc object. It borrows native memory owned by its Topology
// and stays valid until that topology is destroyed; it is never an owned
// copy. The zero Object is invalid.
type Object struct {
	t   *Topology
	ref objref
}

// Info is one textual key-value annotation of a topology object, copied out
// of the native annotation store.
type Info struct {
	Name  string
	Value string
}

// Type returns the kind of the object.
func (o Object) Type() ObjectType {
	return o.t.native.objType(o.ref)
}

// Subtype returns the subtype string further qualifying Type, or "".
func (o Object) Subtype() string {
	return o.t.native.objSubtype(o.ref)
}

// OSIndex returns the OS-provided physical index. It is only guaranteed
// unique machine-wide for PUs and NUMA nodes. The second result is false if
// the index is unknown or irrelevant for this object.
func (o Object) OSIndex() (uint32, bool) {
	const unknownIndex = ^uint32(0)
	idx := o.t.native.objOSIndex(o.ref)
	return idx, idx != unknownIndex
}

// Name returns the object name, or "".
func (o Object) Name() string {
	return o.t.native.objName(o.ref)
}

// TotalMemory returns the total memory in bytes in the NUMA nodes below this
// object.
func (o Object) TotalMemory() uint64 {
	return o.t.native.objTotalMemory(o.ref)
}

// Depth returns the vertical level of the object; special objects outside
// the main tree report their dedicated virtual depth.
func (o Object) Depth() TypeDepth {
	return o.t.native.objDepth(o.ref)
}

// LogicalIndex returns the horizontal index in the whole list of similar
// objects, which is guaranteed unique machine-wide.
func (o Object) LogicalIndex() uint32 {
	return o.t.native.objLogicalIndex(o.ref)
}

// SiblingRank returns the index in the parent's matching child list.
func (o Object) SiblingRank() uint32 {
	return o.t.native.objSiblingRank(o.ref)
}

// SymmetricSubtree reports whether all normal children below this object
// have identical subtrees. Memory, I/O and Misc children are ignored.
func (o Object) SymmetricSubtree() bool {
	return o.t.native.objSymmetricSubtree(o.ref)
}

func (o Object) link(l objLink) (Object, bool) {
	ref := o.t.native.objLink(o.ref, l)
	if ref == nil {
		return Object{}, false
	}
	return Object{t: o.t, ref: ref}, true
}

// Parent returns the parent object, if any.
func (o Object) Parent() (Object, bool) { return o.link(linkParent) }

// NextCousin returns the next object of the same type and depth, if any.
func (o Object) NextCousin() (Object, bool) { return o.link(linkNextCousin) }

// PrevCousin returns the previous object of the same type and depth, if any.
func (o Object) PrevCousin() (Object, bool) { return o.link(linkPrevCousin) }

// NextSibling returns the next object below the same parent in the same
// child list, if any.
func (o Object) NextSibling() (Object, bool) { return o.link(linkNextSibling) }

// PrevSibling returns the previous object below the same parent in the same
// child list, if any.
func (o Object) PrevSibling() (Object, bool) { return o.link(linkPrevSibling) }

// FirstChild returns the first normal child, if any.
func (o Object) FirstChild() (Object, bool) { return o.link(linkFirstChild) }

// LastChild returns the last normal child, if any.
func (o Object) LastChild() (Object, bool) { return o.link(linkLastChild) }

// NormalArity returns the number of normal children, excluding memory, I/O
// and Misc children.
func (o Object) NormalArity() int {
	normal, _, _, _ := o.t.native.objArity(o.ref)
	return int(normal)
}

// MemoryArity returns the number of memory children (NUMA nodes and
// memory-side caches).
func (o Object) MemoryArity() int {
	_, memory, _, _ := o.t.native.objArity(o.ref)
	return int(memory)
}

// IOArity returns the number of I/O children (bridges, PCI and OS devices).
func (o Object) IOArity() int {
	_, _, io, _ := o.t.native.objArity(o.ref)
	return int(io)
}

// MiscArity returns the number of Misc children.
func (o Object) MiscArity() int {
	_, _, _, misc := o.t.native.objArity(o.ref)
	return int(misc)
}

// Children returns the normal children, excluding memory, I/O and Misc
// children.
func (o Object) Children() []Object {
	n := o.NormalArity()
	children := make([]Object, 0, n)
	for i := 0; i < n; i++ {
		ref := o.t.native.objChild(o.ref, uint32(i))
		if ref == nil {
			break
		}
		children = append(children, Object{t: o.t, ref: ref})
	}
	return children
}

func (o Object) linkedChildren(head objLink) []Object {
	var children []Object
	child, ok := o.link(head)
	for ok {
		children = append(children, child)
		child, ok = child.NextSibling()
	}
	return children
}

// MemoryChildren returns the memory children. A memory hierarchy starts at a
// normal object and ends with NUMA nodes as leaves, possibly with
// memory-side caches in between.
func (o Object) MemoryChildren() []Object {
	return o.linkedChildren(linkMemoryFirstChild)
}

// IOChildren returns the I/O children.
func (o Object) IOChildren() []Object {
	return o.linkedChildren(linkIOFirstChild)
}

// MiscChildren returns the Misc children.
func (o Object) MiscChildren() []Object {
	return o.linkedChildren(linkMiscFirstChild)
}

// CPUSet returns the set of PUs covered by this object. All objects have CPU
// and node sets except Misc and I/O objects, for which the second result is
// false.
func (o Object) CPUSet() (CPUSet, bool) {
	return o.t.native.objCPUSet(o.ref, false)
}

// CompleteCPUSet returns the CPU set including PUs for which topology
// information is unknown or incomplete, offline PUs, and disallowed PUs.
func (o Object) CompleteCPUSet() (CPUSet, bool) {
	return o.t.native.objCPUSet(o.ref, true)
}

// NodeSet returns the set of NUMA nodes covered by or containing this
// object. If the machine has no NUMA nodes, the set is full.
func (o Object) NodeSet() (NodeSet, bool) {
	return o.t.native.objNodeSet(o.ref, false)
}

// CompleteNodeSet returns the node set including nodes for which topology
// information is unknown or incomplete, offline nodes, and disallowed nodes.
func (o Object) CompleteNodeSet() (NodeSet, bool) {
	return o.t.native.objNodeSet(o.ref, true)
}

// Infos returns the textual key-value annotations of the object.
func (o Object) Infos() []Info {
	return o.t.native.objInfos(o.ref)
}

// InfoValue returns the value of the first annotation with the given name.
func (o Object) InfoValue(name string) (string, bool) {
	for _, info := range o.Infos() {
		if info.Name == name {
			return info.Value, true
		}
	}
	return "", false
}

// String describes the object by type and indices, e.g. "Core L#4 P#2".
func (o Object) String() string {
	s := fmt.Sprintf("%s L#%d", o.Type(), o.LogicalIndex())
	if idx, ok := o.OSIndex(); ok {
		s += fmt.Sprintf(" P#%d", idx)
	}
	if name := o.Name(); name != "" {
		s += fmt.Sprintf(" (%s)", name)
	}
	return s
}
