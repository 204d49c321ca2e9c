package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/theimaginaryfoundation/calma/checkin"
	"github.com/theimaginaryfoundation/calma/checkin/fileutils"
)

// terminal is the line-oriented console the CLI talks through. Styles come from a renderer bound
// to the output writer, so non-TTY writers get plain text with the same layout.
type terminal struct {
	in  *bufio.Scanner
	out io.Writer

	title lipgloss.Style
	box   lipgloss.Style
	head  lipgloss.Style
	muted lipgloss.Style
	alert lipgloss.Style
}

func newTerminal(in io.Reader, out io.Writer) *terminal {
	r := lipgloss.NewRenderer(out)
	return &terminal{
		in:    bufio.NewScanner(in),
		out:   out,
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		box: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1),
		head:  r.NewStyle().Bold(true),
		muted: r.NewStyle().Foreground(lipgloss.Color("245")),
		alert: r.NewStyle().Foreground(lipgloss.Color("214")),
	}
}

func (t *terminal) header() {
	fmt.Fprintln(t.out, t.title.Render("Calma · check-in emocional"))
}

func (t *terminal) info(s string) {
	fmt.Fprintln(t.out, s)
}

func (t *terminal) warn(s string) {
	fmt.Fprintln(t.out, t.alert.Render("! "+s))
}

// ask prints prompt and returns the next trimmed line. ok is false once input is exhausted.
func (t *terminal) ask(prompt string) (string, bool) {
	fmt.Fprint(t.out, prompt)
	if !t.in.Scan() {
		fmt.Fprintln(t.out)
		return "", false
	}
	return strings.TrimSpace(t.in.Text()), true
}

// askState shows the menu until the answer names a menu entry by key or by state.
func (t *terminal) askState(menu []menuOption) (menuOption, bool) {
	fmt.Fprintln(t.out)
	fmt.Fprintln(t.out, t.head.Render("Como te sentes agora?"))
	for _, o := range menu {
		fmt.Fprintf(t.out, "  %s) %s %s\n", o.Key, o.Emoji, o.State)
	}
	for {
		answer, ok := t.ask(fmt.Sprintf("Escolhe (1-%d ou nome): ", len(menu)))
		if !ok {
			return menuOption{}, false
		}
		answer = strings.ToLower(answer)
		for _, o := range menu {
			if answer == o.Key || answer == o.State {
				return o, true
			}
		}
		t.warn(fmt.Sprintf("Estado desconhecido %q. Tenta outra vez.", answer))
	}
}

func (t *terminal) confirm(question string) bool {
	for {
		answer, ok := t.ask(question + " [s/n]: ")
		if !ok {
			return false
		}
		switch strings.ToLower(answer) {
		case "s", "sim", "y", "yes":
			return true
		case "n", "nao", "não", "no", "":
			return false
		}
		t.warn("Responde s ou n.")
	}
}

func (t *terminal) message(o menuOption, intensity int, text string) {
	title := t.head.Render(fmt.Sprintf("%s %s · intensidade %d/5", o.Emoji, o.State, intensity))
	fmt.Fprintln(t.out, t.box.Render(lipgloss.JoinVertical(lipgloss.Left, title, "", text)))
}

func (t *terminal) history(title string, recs []checkin.HistoryRecord) {
	fmt.Fprintln(t.out)
	fmt.Fprintln(t.out, t.head.Render(title))
	if len(recs) == 0 {
		fmt.Fprintln(t.out, t.muted.Render("  (sem sessões)"))
		return
	}
	for _, r := range recs {
		msg := fileutils.Truncate(fileutils.SanitizeNewlines(r.Message), 60)
		fmt.Fprintf(t.out, "  %s  %-9s %d  %s\n",
			t.muted.Render(r.Timestamp.Local().Format("2006-01-02 15:04")), r.State, r.Intensity, msg)
	}
}
