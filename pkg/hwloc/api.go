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

	"github.com/NVIDIA/go-nvml/pkg/dl"
)

const (
	libraryName         = "libhwloc.so.15"
	libraryNameFallback = "libhwloc.so"
	libraryLoadFlags    = dl.RTLD_LAZY | dl.RTLD_GLOBAL
)

var library *dl.DynamicLibrary

// Init loads the hwloc dynamic library. It must be called before any
// topology is built; calling it again after a successful load is a no-op.
func Init() error {
	if library != nil {
		return nil
	}

	lib := dl.New(libraryName, libraryLoadFlags)
	if err := lib.Open(); err != nil {
		lib = dl.New(libraryNameFallback, libraryLoadFlags)
		if fallbackErr := lib.Open(); fallbackErr != nil {
			return fmt.Errorf("error opening %v: %w", libraryName, err)
		}
	}
	// Sanity-check the loaded library before any topology call resolves
	// against it lazily.
	if err := lib.Lookup("hwloc_topology_init"); err != nil {
		_ = lib.Close()
		return fmt.Errorf("error looking up hwloc_topology_init: %w", err)
	}

	library = lib
	return nil
}

// Shutdown unloads the hwloc dynamic library. All topologies must have been
// destroyed first.
func Shutdown() error {
	if library == nil {
		return nil
	}
	if err := library.Close(); err != nil {
		return fmt.Errorf("error closing %v: %w", libraryName, err)
	}
	library = nil
	return nil
}

// NewTopology discovers the topology of the current system and returns a
// handle to it. The caller owns the result and must Destroy it.
func NewTopology() (*Topology, error) {
	if library == nil {
		return nil, fmt.Errorf("hwloc library not initialized")
	}
	native, err := newNativeTopology()
	if err != nil {
		return nil, err
	}
	return &Topology{native: native}, nil
}
