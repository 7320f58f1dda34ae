package client

import (
	"fmt"
	"io"
	"os"

	"github.com/gookit/color"
)

type Variant int

const (
	VariantDefault Variant = iota
	VariantDestructive
)

// Toast is a short user-facing notification.
type Toast struct {
	Title       string
	Description string
	Variant     Variant
}

type Notifier interface {
	Notify(Toast)
}

// NotifierFunc adapts a plain func to Notifier.
type NotifierFunc func(Toast)

func (f NotifierFunc) Notify(t Toast) { f(t) }

// ConsoleNotifier prints toasts as one colored line each.
type ConsoleNotifier struct {
	Out io.Writer
}

func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	if out == nil {
		out = os.Stderr
	}
	return &ConsoleNotifier{Out: out}
}

func (n *ConsoleNotifier) Notify(t Toast) {
	title := color.Green.Sprint(t.Title)
	if t.Variant == VariantDestructive {
		title = color.Red.Sprint(t.Title)
	}
	fmt.Fprintf(n.Out, "%s %s\n", title, t.Description)
}
