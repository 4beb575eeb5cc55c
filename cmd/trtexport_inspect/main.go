// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// trtexport_inspect prints information about an exported program saved with ExportedProgram.Save.
//
// Usage:
//
//	trtexport_inspect [-summary] [-signature] [-graph] [-state] [-layers] <base_path>
//
// Where <base_path> is the path given to Save, without the ".json"/".bin" suffixes.
package main

import (
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/trtexport/pkg/exporter"
	"github.com/gomlx/trtexport/pkg/fx"
	"github.com/gomlx/trtexport/pkg/runtime"
	"github.com/janpfeifer/must"
	"github.com/muesli/termenv"
	"k8s.io/klog/v2"

	_ "github.com/gomlx/trtexport/pkg/runtime/hostrt"
)

var (
	flagSummary   = flag.Bool("summary", true, "Display a summary of the program: sizes, inputs and engines.")
	flagSignature = flag.Bool("signature", false, "Lists the inputs and outputs of the program.")
	flagGraph     = flag.Bool("graph", false, "Lists the nodes of the program graph.")
	flagState     = flag.Bool("state", false, "Lists the state entries (lifted parameters, buffers and constants).")
	flagLayers    = flag.Bool("layers", false, "Prints the layer information of each engine.")
	flagColor     = flag.Bool("color", true, "Use colors in tables, if the output is a terminal.")
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)

	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		klog.Errorf("Missing exported program base path to read from. See 'trtexport_inspect -help'")
		os.Exit(1)
	}
	if len(args) > 1 {
		klog.Errorf("Too many arguments. See 'trtexport_inspect -help'.")
		os.Exit(1)
	}
	if *flagColor {
		lipgloss.SetColorProfile(termenv.NewOutput(os.Stdout).ColorProfile())
	} else {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	report(args[0])
}

func newPlainTable(withHeader bool) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if withHeader && row == lgtable.HeaderRow {
				return headerRowStyle
			}
			if row%2 == 0 {
				s = evenRowStyle
			} else {
				s = oddRowStyle
			}
			if col == 0 {
				return s.Align(lipgloss.Right)
			}
			return s.Align(lipgloss.Left)
		})
}

func report(basePath string) {
	ep := must.M1(exporter.LoadExportedProgram(basePath))

	if *flagSummary {
		fmt.Println(titleStyle.Render("Summary"))
		fmt.Println(ep.Summary())
	}

	if *flagSignature {
		fmt.Println(titleStyle.Render("Signature"))
		fmt.Println(ep.Signature())
	}

	if *flagGraph {
		fmt.Println(titleStyle.Render("Graph"))
		fmt.Println(ep.Graph())
	}

	if *flagState {
		fmt.Println(titleStyle.Render("State"))
		table := newPlainTable(true)
		table.Headers("Kind", "Name", "Shape", "Size", "Bytes")
		var rows [][]string
		state := ep.State()
		for _, name := range state.Names() {
			entry, _ := state.Get(name)
			shape := entry.Value.Shape()
			rows = append(rows, []string{
				entry.Kind.String(), name, shape.String(),
				humanize.Comma(int64(shape.Size())),
				humanize.Bytes(uint64(shape.Memory())),
			})
		}
		slices.SortFunc(rows, func(a, b []string) int {
			if cmp := strings.Compare(a[0], b[0]); cmp != 0 {
				return cmp
			}
			return strings.Compare(a[1], b[1])
		})
		for _, row := range rows {
			table.Row(row...)
		}
		fmt.Println(table.Render())
	}

	if *flagLayers {
		for _, node := range ep.Graph().FindNodes(fx.OpCallFunction, runtime.ExecuteEngine.Name) {
			engine, ok := node.Arg(1).(runtime.Engine)
			if !ok {
				klog.Warningf("Node %q has no engine argument", node.Name())
				continue
			}
			fmt.Println(titleStyle.Render(fmt.Sprintf("Engine %q (node %q)", engine.Name(), node.Name())))
			layers, err := engine.LayerInfo()
			if err != nil {
				klog.Errorf("Failed to get layer information of engine %q: %+v", engine.Name(), err)
				continue
			}
			fmt.Println(layers)
		}
	}
}
