package asm

import (
	"io"
	"strings"
)

const emptySection = "    ; (empty)"

// Program is a complete assembly unit ready for rendering.
type Program struct {
	Platform Platform
	Header   []string // comment lines, without the leading "; "
	Data     []Data
	BSS      []Reserve
	Text     []Line
}

// Render returns the NASM source of the program.
func (p *Program) Render() string {
	var sb strings.Builder
	p.render(&sb)
	return sb.String()
}

// WriteTo writes the rendered program to w.
func (p *Program) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, p.Render())
	return int64(n), err
}

func (p *Program) render(sb *strings.Builder) {
	for _, h := range p.Header {
		sb.WriteString("; " + h + "\n")
	}
	sb.WriteString("\n")

	sb.WriteString("extern " + p.Platform.PrintSymbol() + "\n")
	sb.WriteString("extern " + p.Platform.ExitSymbol() + "\n")
	sb.WriteString("\n")

	sb.WriteString("section .data\n")
	if len(p.Data) == 0 {
		sb.WriteString(emptySection + "\n")
	}
	for _, d := range p.Data {
		sb.WriteString("    " + d.String() + "\n")
	}
	sb.WriteString("\n")

	sb.WriteString("section .bss\n")
	if len(p.BSS) == 0 {
		sb.WriteString(emptySection + "\n")
	}
	for _, r := range p.BSS {
		sb.WriteString("    " + r.String() + "\n")
	}
	sb.WriteString("\n")

	entry := p.Platform.EntryLabel()
	sb.WriteString("section .text\n")
	sb.WriteString("global " + entry + "\n")
	sb.WriteString("\n")
	sb.WriteString(entry + ":\n")
	if len(p.Text) == 0 {
		sb.WriteString(emptySection + "\n")
	}
	for _, l := range p.Text {
		sb.WriteString(l.String() + "\n")
	}

	sb.WriteString("\n")
	sb.WriteString(Comment{Text: "program exit"}.String() + "\n")
	for _, l := range p.Platform.ExitSequence() {
		sb.WriteString(l.String() + "\n")
	}
}
