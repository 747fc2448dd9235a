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
	"unsafe"
)

// Bytes owns a contiguous memory region obtained from the native allocator of
// one topology. It must be released exactly once through Free, using the same
// topology, before that topology is destroyed. The content starts out
// uninitialized.
type Bytes struct {
	t        *Topology
	addr     unsafe.Pointer
	size     uintptr
	released bool
}

// wrapBytes wraps a native allocation. A nil addr means the native allocator
// failed and yields no usable value.
func wrapBytes(t *Topology, addr unsafe.Pointer, size uintptr) *Bytes {
	if addr == nil {
		return nil
	}
	return &Bytes{t: t, addr: addr, size: size}
}

// Bytes returns the allocation as a byte slice of exactly the allocated
// length. The slice must not be used after Free.
func (b *Bytes) Bytes() []byte {
	if b.released {
		panic("hwloc: use of released allocation")
	}
	if b.size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(b.addr), b.size)
}

// Len returns the allocated length in bytes.
func (b *Bytes) Len() int {
	return int(b.size)
}

// Free hands the region back to the native allocator of the owning topology.
// Releasing twice, or a release failure reported by the native library, means
// the managed and native allocator state have diverged and no caller contract
// can repair that, so both panic instead of returning an error.
func (b *Bytes) Free() {
	if b.released {
		panic("hwloc: allocation released twice")
	}
	b.released = true
	if result := b.t.native.free(b.addr, b.size); result != 0 {
		panic(fmt.Sprintf("hwloc: hwloc_free returned %d for a live allocation", result))
	}
	b.addr = nil
}
