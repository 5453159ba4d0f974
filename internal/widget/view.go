package widget

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"
)

// Align is the side of the container a message sits on.
type Align int

const (
	AlignStart Align = iota
	AlignEnd
)

var (
	baseClasses     = []string{"p-2", "rounded", "mb-2", "max-w-xs"}
	outgoingClasses = []string{"bg-blue-500", "text-white", "self-end"}
	incomingClasses = []string{"bg-gray-200", "text-black", "self-start"}
)

// Element is one rendered message. Text is plain text, never markup.
type Element struct {
	Text    string
	Classes []string
	Align   Align
}

func (e Element) ClassName() string {
	return strings.Join(e.Classes, " ")
}

// View is the #messages container.
type View interface {
	Clear()
	Append(el Element)
	ScrollToBottom()
}

// Container keeps rendered elements in memory.
type Container struct {
	mu       sync.Mutex
	elements []Element
	scrolled int
}

func NewContainer() *Container {
	return &Container{}
}

func (c *Container) Clear() {
	c.mu.Lock()
	c.elements = nil
	c.scrolled = 0
	c.mu.Unlock()
}

func (c *Container) Append(el Element) {
	c.mu.Lock()
	c.elements = append(c.elements, el)
	c.mu.Unlock()
}

func (c *Container) ScrollToBottom() {
	c.mu.Lock()
	c.scrolled = len(c.elements)
	c.mu.Unlock()
}

func (c *Container) Elements() []Element {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Element, len(c.elements))
	copy(out, c.elements)
	return out
}

// AtBottom reports whether the last scroll happened after the last append.
func (c *Container) AtBottom() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scrolled == len(c.elements)
}

// TextView prints elements as lines, right aligning outgoing ones within
// Width columns.
type TextView struct {
	mu    sync.Mutex
	out   io.Writer
	Width int
}

func NewTextView(out io.Writer, width int) *TextView {
	if width <= 0 {
		width = 80
	}
	return &TextView{out: out, Width: width}
}

func (v *TextView) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, strings.Repeat("-", v.Width))
}

func (v *TextView) Append(el Element) {
	v.mu.Lock()
	defer v.mu.Unlock()
	text := strings.ReplaceAll(el.Text, "\n", " ")
	if el.Align == AlignEnd {
		if pad := v.Width - utf8.RuneCountInString(text); pad > 0 {
			text = strings.Repeat(" ", pad) + text
		}
	}
	fmt.Fprintln(v.out, text)
}

// ScrollToBottom is a no-op, a terminal is always scrolled to the bottom.
func (v *TextView) ScrollToBottom() {}
