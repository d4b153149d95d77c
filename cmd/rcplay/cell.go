package main

import (
	"fmt"
	"io"
	"strings"
)

// Cell is the playground payload. Children give aliases something to
// point into.
type Cell struct {
	out      io.Writer
	Label    string
	Children []Cell
	Value    int
}

func newCell(out io.Writer, label string, value, children int) Cell {
	c := Cell{out: out, Label: label, Value: value}
	for i := 0; i < children; i++ {
		c.Children = append(c.Children, Cell{
			Label: fmt.Sprintf("%s.%d", label, i),
			Value: value*10 + i,
		})
	}
	return c
}

// Drop reports finalization of top-level cells.
func (c *Cell) Drop() {
	if c.out != nil {
		fmt.Fprintf(c.out, "  finalized %s\n", c.Label)
	}
}

func formatCell(c *Cell) string {
	if len(c.Children) == 0 {
		return fmt.Sprintf("%s=%d", c.Label, c.Value)
	}
	names := make([]string, len(c.Children))
	for i := range c.Children {
		names[i] = c.Children[i].Label
	}
	return fmt.Sprintf("%s=%d [%s]", c.Label, c.Value, strings.Join(names, " "))
}
