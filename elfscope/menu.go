package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

var (
	errNoFile = errors.New("no file loaded")
	errQuit   = errors.New("quit")
)

type menuItem struct {
	name string
	call func(*menu) error
}

var menuItems = map[int]menuItem{
	0: {"Toggle Debug Mode", (*menu).toggleDebug},
	1: {"Examine ELF File", (*menu).examine},
	2: {"Print Section Names", withSession((*app).runSections)},
	3: {"Print Symbols", withSession((*app).runSymbols)},
	4: {"Relocation Tables", withSession((*app).runRelocations)},
	5: {"Quit", func(*menu) error { return errQuit }},
}

// menu is the interactive loop. It owns at most one open session at a time.
type menu struct {
	app     *app
	in      *bufio.Scanner
	current *session
}

func newMenu(a *app, in io.Reader) *menu {
	return &menu{app: a, in: bufio.NewScanner(in)}
}

func withSession(run func(*app, *session) error) func(*menu) error {
	return func(m *menu) error {
		if m.current == nil {
			return errNoFile
		}
		return run(m.app, m.current)
	}
}

func (m *menu) run() error {
	defer m.close()

	out := m.app.out
	for {
		fmt.Fprintln(out, "Choose action")
		for i := 0; i < len(menuItems); i++ {
			fmt.Fprintf(out, "%d-%s\n", i, menuItems[i].name)
		}

		line, ok := m.readLine()
		if !ok {
			return m.in.Err()
		}
		choice, err := strconv.Atoi(line)
		item, found := menuItems[choice]
		if err != nil || !found {
			fmt.Fprintln(out, color.RedString("invalid choice %q", line))
			continue
		}

		if err := item.call(m); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintln(out, color.RedString("%s failed: %v", strings.ToLower(item.name), err))
		}
	}
}

func (m *menu) readLine() (string, bool) {
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

func (m *menu) toggleDebug() error {
	m.app.config.Debug = !m.app.config.Debug
	m.app.config.apply()
	state := "off"
	if m.app.config.Debug {
		state = "on"
	}
	fmt.Fprintf(m.app.out, "Debug flag now %s\n", state)
	return nil
}

// examine opens a new file. The previous session stays loaded if the new one
// cannot be opened.
func (m *menu) examine() error {
	fmt.Fprint(m.app.out, "enter a file name: ")
	path, ok := m.readLine()
	if !ok {
		return errQuit
	}

	s, err := openSession(path)
	if err != nil {
		return err
	}
	m.close()
	m.current = s
	return m.app.runHeader(s)
}

func (m *menu) close() {
	if m.current == nil {
		return
	}
	if err := m.current.Close(); err != nil {
		logrus.WithError(err).Warnf("closing %s", m.current.path)
	}
	m.current = nil
}
