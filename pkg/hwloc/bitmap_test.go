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
	. "github.com/onsi/ginkgo/v2/dsl/core"
	. "github.com/onsi/ginkgo/v2/dsl/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("bitmaps", func() {

	DescribeTable("generating textual representations",
		func(b Bitmap, expected string) {
			Expect(b.String()).To(Equal(expected))
		},
		Entry(nil, Bitmap{}, ""),
		Entry(nil, Bitmap{}.Set(0), "0"),
		Entry(nil, Bitmap{}.SetRange(0, 3).Set(8), "0-3,8"),
		Entry(nil, Bitmap{}.Set(1).SetRange(2, 42).Set(666), "1-42,666"),
		Entry(nil, Bitmap{}.Set(63).Set(64), "63-64"),
	)

	When("parsing list format text", func() {

		It("returns nothing from nothing", func() {
			Expect(ParseBitmap("")).To(Equal(Bitmap{}))
		})

		DescribeTable("round-trips",
			func(text string) {
				b, err := ParseBitmap(text)
				Expect(err).NotTo(HaveOccurred())
				Expect(b.String()).To(Equal(text))
			},
			Entry(nil, "42"),
			Entry(nil, "42-666"),
			Entry(nil, "0-3,8"),
			Entry(nil, "1-42,666,1000-1001"),
		)

		DescribeTable("rejecting junk",
			func(text string, msg string) {
				_, err := ParseBitmap(text)
				Expect(err).To(MatchError(msg))
			},
			Entry(nil, "abc", "expected unsigned integer number"),
			Entry(nil, "1-z", "expected unsigned integer number"),
			Entry(nil, "0abc", "expected '-' or ','"),
			Entry(nil, "0-1abc", "expected ','"),
			Entry(nil, "3-1", "invalid range 3-1"),
		)

	})

	It("tests, sets and clears individual indices", func() {
		b := Bitmap{}
		Expect(b.IsSet(5)).To(BeFalse())
		b = b.Set(5)
		Expect(b.IsSet(5)).To(BeTrue())
		b.Clear(5)
		Expect(b.IsSet(5)).To(BeFalse())
		Expect(b.IsEmpty()).To(BeTrue())
	})

	It("grows across word boundaries", func() {
		b := Bitmap{}.SetRange(60, 70)
		Expect(b.Weight()).To(Equal(11))
		Expect(b.First()).To(Equal(60))
		Expect(b.Last()).To(Equal(70))
	})

	It("knows first and last of the empty bitmap", func() {
		Expect(Bitmap{}.First()).To(Equal(-1))
		Expect(Bitmap{}.Last()).To(Equal(-1))
	})

	DescribeTable("comparing",
		func(b, other Bitmap, equal bool) {
			Expect(b.Equal(other)).To(Equal(equal))
			Expect(other.Equal(b)).To(Equal(equal))
		},
		Entry(nil, Bitmap{}, Bitmap{}, true),
		Entry(nil, Bitmap{}.Set(1), Bitmap{}.Set(1), true),
		Entry(nil, Bitmap{}.Set(1), Bitmap{}.Set(2), false),
		// Trailing zero words make no difference.
		Entry(nil, Bitmap{}.Set(1), Bitmap{1 << 1, 0}, true),
	)

	It("clones independently", func() {
		b := Bitmap{}.SetRange(0, 3)
		c := b.Clone()
		c = c.Set(9)
		Expect(b.IsSet(9)).To(BeFalse())
		Expect(c.IsSet(9)).To(BeTrue())
	})

	It("panics on an inverted range", func() {
		Expect(func() { Bitmap{}.SetRange(2, 1) }).To(Panic())
	})

})

var _ = Describe("CPU and node sets", func() {

	It("builds sets from indices", func() {
		Expect(NewCPUSet(0, 1, 8).String()).To(Equal("0-1,8"))
		Expect(NewNodeSet(2).String()).To(Equal("2"))
	})

	It("parses sets from list format text", func() {
		Expect(ParseCPUSet("0-3,8")).To(Equal(NewCPUSet(0, 1, 2, 3, 8)))
		Expect(ParseNodeSet("1,3")).To(Equal(NewNodeSet(1, 3)))
	})

	It("rejects junk", func() {
		_, err := ParseCPUSet("one")
		Expect(err).To(HaveOccurred())
		_, err = ParseNodeSet("1-")
		Expect(err).To(HaveOccurred())
	})

	It("compares and clones by value", func() {
		s := NewCPUSet(1, 2)
		Expect(s.Equal(NewCPUSet(1, 2))).To(BeTrue())
		Expect(s.Equal(NewCPUSet(1))).To(BeFalse())
		c := s.Clone()
		c.Bitmap = c.Bitmap.Set(7)
		Expect(s.Equal(c)).To(BeFalse())
	})

})
