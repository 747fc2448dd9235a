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

package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	cli "github.com/urfave/cli/v2"

	"github.com/hwtopo/go-hwloc/internal/info"
	"github.com/hwtopo/go-hwloc/pkg/hwloc"
)

// Flags holds configurable settings as set via the CLI.
type Flags struct {
	Verbose bool
	Indent  string
}

func main() {
	flags := Flags{}

	c := cli.NewApp()
	c.Name = "hwloc-info"
	c.Usage = "print a summary of the hardware topology"
	c.Version = info.GetVersionString()
	c.Action = func(ctx *cli.Context) error {
		return start(ctx, &flags)
	}

	c.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:        "verbose",
			Aliases:     []string{"v"},
			Usage:       "Enable debug logging.",
			Destination: &flags.Verbose,
			EnvVars:     []string{"HWLOC_INFO_VERBOSE"},
		},
		&cli.StringFlag{
			Name:        "indent",
			Usage:       "Indentation per tree level.",
			Value:       "  ",
			Destination: &flags.Indent,
		},
	}

	if err := c.Run(os.Args); err != nil {
		log.SetOutput(os.Stderr)
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func start(ctx *cli.Context, f *Flags) error {
	if f.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	if err := hwloc.Init(); err != nil {
		return fmt.Errorf("error loading the hwloc library: %v", err)
	}
	defer func() {
		if err := hwloc.Shutdown(); err != nil {
			log.Errorf("Error unloading the hwloc library: %v", err)
		}
	}()

	topo, err := hwloc.NewTopology()
	if err != nil {
		return fmt.Errorf("error discovering the topology: %v", err)
	}
	defer topo.Destroy()

	printSummary(topo)
	printLevels(topo)
	printTree(topo.Root(), f.Indent, 0)
	return nil
}

func printSummary(topo *hwloc.Topology) {
	root := topo.Root()

	fmt.Printf("Machine: %s\n", root.Name())
	fmt.Printf("Total memory: %d bytes\n", root.TotalMemory())
	fmt.Printf("Packages: %d\n", topo.NumObjectsByType(hwloc.OBJ_PACKAGE))
	fmt.Printf("Cores: %d\n", topo.NumObjectsByType(hwloc.OBJ_CORE))
	fmt.Printf("PUs: %d\n", topo.NumObjectsByType(hwloc.OBJ_PU))
	fmt.Printf("NUMA nodes: %d\n", topo.NumObjectsByType(hwloc.OBJ_NUMANODE))
	fmt.Printf("Complete cpuset: %s\n", topo.CompleteCPUSet())
	fmt.Printf("Complete nodeset: %s\n", topo.CompleteNodeSet())

	for _, i := range root.Infos() {
		log.Debugf("Machine info %s=%s", i.Name, i.Value)
	}
}

// printLevels walks the normal levels top to bottom; they are contiguous
// starting at the root level.
func printLevels(topo *hwloc.Topology) {
	fmt.Println("Levels:")
	for depth := hwloc.TypeDepth(0); ; depth++ {
		n := topo.NumObjectsAtDepth(depth)
		if n == 0 {
			break
		}
		obj, ok := topo.ObjectAtDepth(depth, 0)
		if !ok {
			break
		}
		fmt.Printf("  depth %d: %d x %s\n", depth, n, obj.Type())
	}
	if n := topo.NumObjectsAtDepth(hwloc.TypeDepthNUMANode); n > 0 {
		fmt.Printf("  %d x %s\n", n, hwloc.OBJ_NUMANODE)
	}
}

func printTree(obj hwloc.Object, indent string, depth int) {
	prefix := ""
	for i := 0; i < depth; i++ {
		prefix += indent
	}
	fmt.Printf("%s%s\n", prefix, describe(obj))
	for _, child := range obj.MemoryChildren() {
		fmt.Printf("%s%s%s\n", prefix, indent, describe(child))
	}
	for _, child := range obj.Children() {
		printTree(child, indent, depth+1)
	}
}

func describe(obj hwloc.Object) string {
	s := obj.String()
	if set, ok := obj.CPUSet(); ok && !set.IsEmpty() {
		s += fmt.Sprintf(" cpuset=%s", set)
	}
	if obj.Type() == hwloc.OBJ_NUMANODE {
		s += fmt.Sprintf(" memory=%d", obj.TotalMemory())
	}
	return s
}
