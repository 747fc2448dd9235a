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
	"math/bits"
	"slices"
	"strings"

	"github.com/thediveo/faf"
)

// Bitmap is an ordered set of non-negative indices, stored as a bit string.
// It is the Go-side representation of an hwloc bitmap; conversion to and from
// the native representation happens only at the native call boundary.
//
// The zero value is an empty bitmap. Mutating methods may return a grown
// slice, which may or may not alias the original, so use the
// assign-the-result idiom as with append.
type Bitmap []uint64

const bitsPerWord = 64

// IsSet reports whether index i is in the bitmap.
func (b Bitmap) IsSet(i uint) bool {
	if i >= uint(len(b))*bitsPerWord {
		return false
	}
	return b[i/bitsPerWord]&(1<<(i%bitsPerWord)) != 0
}

// Set adds index i, returning the updated bitmap.
func (b Bitmap) Set(i uint) Bitmap {
	return b.SetRange(i, i)
}

// SetRange adds all indices from from to to inclusive, returning the updated
// bitmap.
func (b Bitmap) SetRange(from, to uint) Bitmap {
	if from > to {
		panic(fmt.Sprintf("invalid range %d-%d", from, to))
	}
	if to >= uint(len(b))*bitsPerWord {
		b = slices.Grow(b, int(to/bitsPerWord)-len(b)+1)
		b = b[:cap(b)]
	}
	for i := from; i <= to; i++ {
		b[i/bitsPerWord] |= 1 << (i % bitsPerWord)
	}
	return b
}

// Clear removes index i.
func (b Bitmap) Clear(i uint) {
	if i >= uint(len(b))*bitsPerWord {
		return
	}
	b[i/bitsPerWord] &^= 1 << (i % bitsPerWord)
}

// IsEmpty reports whether no index is set.
func (b Bitmap) IsEmpty() bool {
	for _, w := range b {
		if w != 0 {
			return false
		}
	}
	return true
}

// Weight returns the number of indices in the bitmap.
func (b Bitmap) Weight() int {
	n := 0
	for _, w := range b {
		n += bits.OnesCount64(w)
	}
	return n
}

// First returns the lowest index in the bitmap, or -1 if it is empty.
func (b Bitmap) First() int {
	for i, w := range b {
		if w != 0 {
			return i*bitsPerWord + bits.TrailingZeros64(w)
		}
	}
	return -1
}

// Last returns the highest index in the bitmap, or -1 if it is empty.
func (b Bitmap) Last() int {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] != 0 {
			return i*bitsPerWord + bitsPerWord - 1 - bits.LeadingZeros64(b[i])
		}
	}
	return -1
}

// Equal reports whether both bitmaps contain the same indices, regardless of
// their storage widths.
func (b Bitmap) Equal(other Bitmap) bool {
	long, short := b, other
	if len(long) < len(short) {
		long, short = short, long
	}
	for i, w := range short {
		if w != long[i] {
			return false
		}
	}
	for _, w := range long[len(short):] {
		if w != 0 {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the bitmap.
func (b Bitmap) Clone() Bitmap {
	return slices.Clone(b)
}

// words returns the backing words, for consumption by the native layer.
func (b Bitmap) words() []uint64 {
	return b
}

// String returns the bitmap in list format: ranges "x-y" separated by ",",
// with single-index ranges collapsed into "x".
func (b Bitmap) String() string {
	var out strings.Builder
	first := true
	from := -1
	flush := func(to int) {
		if from < 0 {
			return
		}
		if !first {
			out.WriteString(",")
		}
		first = false
		if from == to {
			fmt.Fprintf(&out, "%d", from)
		} else {
			fmt.Fprintf(&out, "%d-%d", from, to)
		}
		from = -1
	}
	for i := 0; i < len(b)*bitsPerWord; i++ {
		if b.IsSet(uint(i)) {
			if from < 0 {
				from = i
			}
			continue
		}
		flush(i - 1)
	}
	flush(len(b)*bitsPerWord - 1)
	return out.String()
}

// ParseBitmap parses list-format text such as "0-3,8,10-11" into a Bitmap.
func ParseBitmap(s string) (Bitmap, error) {
	bs := faf.NewBytestring([]byte(s))
	b := Bitmap{}
	for {
		if bs.EOL() {
			return b, nil
		}
		from, ok := bs.Uint64()
		if !ok {
			return nil, errors.New("expected unsigned integer number")
		}
		if bs.EOL() {
			return b.Set(uint(from)), nil
		}
		switch ch, _ := bs.Next(); ch {
		case '-':
			to, ok := bs.Uint64()
			if !ok {
				return nil, errors.New("expected unsigned integer number")
			}
			if to < from {
				return nil, fmt.Errorf("invalid range %d-%d", from, to)
			}
			b = b.SetRange(uint(from), uint(to))
			if bs.EOL() {
				return b, nil
			}
			if ch, _ = bs.Next(); ch != ',' {
				return nil, errors.New("expected ','")
			}
		case ',':
			b = b.Set(uint(from))
		default:
			return nil, errors.New("expected '-' or ','")
		}
	}
}

// CPUSet is a Bitmap whose indices are physical processing unit (PU) OS
// indices.
type CPUSet struct {
	Bitmap
}

// NewCPUSet returns a CPUSet containing the given PU indices.
func NewCPUSet(cpus ...uint) CPUSet {
	s := CPUSet{Bitmap{}}
	for _, c := range cpus {
		s.Bitmap = s.Bitmap.Set(c)
	}
	return s
}

// ParseCPUSet parses list-format text into a CPUSet.
func ParseCPUSet(s string) (CPUSet, error) {
	b, err := ParseBitmap(s)
	if err != nil {
		return CPUSet{}, err
	}
	return CPUSet{b}, nil
}

// Equal reports whether both sets contain the same PUs.
func (s CPUSet) Equal(other CPUSet) bool {
	return s.Bitmap.Equal(other.Bitmap)
}

// Clone returns an independent copy of the set.
func (s CPUSet) Clone() CPUSet {
	return CPUSet{s.Bitmap.Clone()}
}

// NodeSet is a Bitmap whose indices are NUMA node OS indices.
type NodeSet struct {
	Bitmap
}

// NewNodeSet returns a NodeSet containing the given NUMA node indices.
func NewNodeSet(nodes ...uint) NodeSet {
	s := NodeSet{Bitmap{}}
	for _, n := range nodes {
		s.Bitmap = s.Bitmap.Set(n)
	}
	return s
}

// ParseNodeSet parses list-format text into a NodeSet.
func ParseNodeSet(s string) (NodeSet, error) {
	b, err := ParseBitmap(s)
	if err != nil {
		return NodeSet{}, err
	}
	return NodeSet{b}, nil
}

// Equal reports whether both sets contain the same nodes.
func (s NodeSet) Equal(other NodeSet) bool {
	return s.Bitmap.Equal(other.Bitmap)
}

// Clone returns an independent copy of the set.
func (s NodeSet) Clone() NodeSet {
	return NodeSet{s.Bitmap.Clone()}
}
