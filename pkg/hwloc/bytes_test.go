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
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestWrapBytesNilAllocation(t *testing.T) {
	require.Nil(t, wrapBytes(newFakeTopology(&fakeNative{}), nil, 16))
}

func TestBytesView(t *testing.T) {
	backing := make([]byte, 8)
	backing[0] = 0xaa
	backing[7] = 0x55

	b := wrapBytes(newFakeTopology(&fakeNative{}), unsafe.Pointer(&backing[0]), 8)
	require.Equal(t, 8, b.Len())

	view := b.Bytes()
	require.Len(t, view, 8)
	require.Equal(t, byte(0xaa), view[0])
	require.Equal(t, byte(0x55), view[7])

	// The view writes through to the allocation.
	view[3] = 0x11
	require.Equal(t, byte(0x11), backing[3])
}

func TestBytesFree(t *testing.T) {
	backing := make([]byte, 4)
	freed := 0
	native := &fakeNative{
		freeFn: func(addr unsafe.Pointer, size uintptr) int {
			require.Equal(t, unsafe.Pointer(&backing[0]), addr)
			require.Equal(t, uintptr(4), size)
			freed++
			return 0
		},
	}

	b := wrapBytes(newFakeTopology(native), unsafe.Pointer(&backing[0]), 4)
	b.Free()
	require.Equal(t, 1, freed)

	require.Panics(t, func() { b.Free() })
	require.Panics(t, func() { _ = b.Bytes() })
	require.Equal(t, 1, freed)
}

func TestBytesFreeFailurePanics(t *testing.T) {
	backing := make([]byte, 4)
	native := &fakeNative{
		freeFn: func(unsafe.Pointer, uintptr) int { return -1 },
	}
	b := wrapBytes(newFakeTopology(native), unsafe.Pointer(&backing[0]), 4)
	require.Panics(t, func() { b.Free() })
}

func TestAllocateMemory(t *testing.T) {
	backing := make([]byte, 16)
	native := &fakeNative{
		allocFn: func(size uintptr) unsafe.Pointer {
			require.Equal(t, uintptr(16), size)
			return unsafe.Pointer(&backing[0])
		},
	}
	topo := newFakeTopology(native)
	b, err := topo.AllocateMemory(16)
	require.NoError(t, err)
	require.Equal(t, 16, b.Len())

	native.allocFn = func(uintptr) unsafe.Pointer { return nil }
	_, err = topo.AllocateMemory(16)
	require.ErrorIs(t, err, ErrAllocationFailed)
}
