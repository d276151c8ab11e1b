// Package termfmt styles CLI output with ANSI escapes.  It started life as @shabbyrobe's
// termfmt (MIT, https://github.com/shabbyrobe/golib), cut down to bold text and the 16 basic
// colours, which is all a status line needs.
package termfmt

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"unicode"
)

type Escape interface {
	Wrap(out string) string
}

var disabled atomic.Bool

// SetEnabled turns styling on or off for the whole process, e.g. for NO_COLOR or when output
// isn't a terminal.  Values are still printed when it is off, just without escapes.
func SetEnabled(on bool) { disabled.Store(!on) }

func Enabled() bool { return !disabled.Load() }

func With(escs ...Escape) Style { return (Style{}).With(escs...) }
func Bold() Style               { return (Style{}).Bold() }
func Fg(c Color) Style          { return (Style{}).Fg(c) }

// OK, Fail and Warn are the styles of status words: "healthy", "rejected" and so on.
func OK() Style   { return Fg(Green).Bold() }
func Fail() Style { return Fg(Red).Bold() }
func Warn() Style { return Fg(Yellow) }

// Status picks OK or Fail.
func Status(ok bool) Style {
	if ok {
		return OK()
	}
	return Fail()
}

type Style struct {
	escapes []Escape
	v       any
}

var _ fmt.Formatter = Style{}

func (s Style) With(escs ...Escape) Style {
	s.escapes = append(append([]Escape(nil), s.escapes...), escs...)
	return s
}

func (s Style) Bold() Style      { return s.With(BoldEscape{}) }
func (s Style) Fg(c Color) Style { return s.With(ColorEscape{Color: c}) }
func (s Style) Bg(c Color) Style { return s.With(ColorEscape{Color: c, Bg: true}) }

// V sets the value printed in this style.
func (s Style) V(v any) Style {
	s.v = v
	return s
}

func (s Style) Sprint(v any) string {
	return fmt.Sprintf("%v", s.V(v))
}

func (s Style) Format(f fmt.State, verb rune) {
	v := printable(fmt.Sprintf(buildValueFormat(f, verb), s.v))
	if Enabled() {
		for i := len(s.escapes) - 1; i >= 0; i-- {
			v = s.escapes[i].Wrap(v)
		}
	}
	_, _ = f.Write([]byte(v))
}

func buildValueFormat(f fmt.State, verb rune) string {
	var b strings.Builder
	b.WriteByte('%')
	for _, flag := range " +-0#" {
		if f.Flag(int(flag)) {
			b.WriteRune(flag)
		}
	}
	if width, ok := f.Width(); ok {
		b.WriteString(strconv.Itoa(width))
	}
	if prec, ok := f.Precision(); ok {
		b.WriteString("." + strconv.Itoa(prec))
	}
	b.WriteRune(verb)
	return b.String()
}

type BoldEscape struct{}

func (BoldEscape) Wrap(v string) string { return "\x1b[1m" + v + "\x1b[0m" }

type Color uint8

const (
	DefaultColor Color = iota

	Black
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	LightGrey

	DarkGrey
	LightRed
	LightGreen
	LightYellow
	LightBlue
	LightMagenta
	LightCyan
	White
)

type ColorEscape struct {
	Color Color
	Bg    bool
}

func (c ColorEscape) Wrap(out string) string {
	code := 39
	if c.Color != DefaultColor {
		// The lower 8 colours run from 30 to 37, the upper 8 from 90 to 97.
		code = int(c.Color) - 1 + 30
		if c.Color >= DarkGrey {
			code = int(c.Color) - int(DarkGrey) + 90
		}
	}
	if c.Bg {
		code += 10
	}
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", code, out)
}

// printable drops control characters, so values coming from AEM can't smuggle in their own escapes.
func printable(v string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsGraphic(r) || r == '\n' || r == '\t' {
			return r
		}
		return -1
	}, v)
}
