// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package exporter

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/trtexport/pkg/core/fake"
	"github.com/gomlx/trtexport/pkg/fx"
	"github.com/gomlx/trtexport/pkg/runtime"
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

func newPlainTable(withHeader bool) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if withHeader && row == lgtable.HeaderRow {
				s = headerRowStyle
				return
			}
			if row%2 == 0 {
				s = evenRowStyle
			} else {
				s = oddRowStyle
			}
			if col == 0 {
				s = s.Align(lipgloss.Right)
			} else {
				s = s.Align(lipgloss.Left)
			}
			return
		})
}

// Summary renders tables describing the program: its sizes, its inputs and its engines.
func (ep *ExportedProgram) Summary() string {
	var sb strings.Builder
	g := ep.Graph()
	engineNodes := g.FindNodes(fx.OpCallFunction, runtime.ExecuteEngine.Name)

	table := newPlainTable(false)
	table.Row("program", ep.Name())
	table.Row("# nodes", humanize.Comma(int64(g.Len())))
	table.Row("# user inputs", humanize.Comma(int64(len(ep.signature.UserInputs()))))
	table.Row("# outputs", humanize.Comma(int64(len(ep.signature.OutputSpecs))))
	table.Row("# engines", humanize.Comma(int64(len(engineNodes))))
	var numParameters int
	for _, name := range ep.state.Names() {
		entry, _ := ep.state.Get(name)
		numParameters += entry.Value.Size()
	}
	table.Row("# state entries", humanize.Comma(int64(ep.state.Len())))
	table.Row("# state values", humanize.Comma(int64(numParameters)))
	table.Row("# state bytes", humanize.Bytes(uint64(ep.state.Memory())))
	sb.WriteString(table.Render())
	sb.WriteString("\n")

	sb.WriteString(titleStyle.Render("Inputs"))
	sb.WriteString("\n")
	table = newPlainTable(true)
	table.Headers("Kind", "Name", "Target", "Shape", "Size")
	for _, spec := range ep.signature.InputSpecs {
		shape, size := "?", ""
		if node := g.NodeByName(spec.Arg.Name); node != nil {
			if ft, ok := node.Val().(*fake.Tensor); ok {
				shape = ft.Shape().String()
				size = humanize.Bytes(uint64(ft.Shape().Memory()))
			}
		}
		table.Row(spec.Kind.String(), spec.Arg.Name, spec.Target, shape, size)
	}
	sb.WriteString(table.Render())
	sb.WriteString("\n")

	if len(engineNodes) > 0 {
		sb.WriteString(titleStyle.Render("Engines"))
		sb.WriteString("\n")
		table = newPlainTable(true)
		table.Headers("Node", "Engine", "Runtime", "Outputs")
		for _, node := range engineNodes {
			engineName, runtimeName := "?", "?"
			if engine, ok := node.Arg(1).(runtime.Engine); ok {
				engineName, runtimeName = engine.Name(), engine.RuntimeName()
			}
			table.Row(node.Name(), engineName, runtimeName, fmt.Sprintf("%v", fake.Shapes(node.Val())))
		}
		sb.WriteString(table.Render())
		sb.WriteString("\n")
	}
	return sb.String()
}
