package sdb

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/spf13/cobra"

	"github.com/Manu343726/rvsdb/pkg/hw/cpu/debugger"
	"github.com/Manu343726/rvsdb/pkg/utils"
)

var viewImage string

var viewCmd = &cobra.Command{
	Use:   "view [snapshot]",
	Short: "Browse a saved session in a full screen viewer",
	Long: `Opens a session snapshot written by the monitor 'trace save FILE' command and
shows its registers, watch points and traces side by side.

With --image the image is run to completion first and the resulting session is
shown instead.

Keys:
  Tab          - Switch between the section list and its contents
  Up/Down      - Select a section or scroll its contents
  q, Esc       - Quit`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := viewSnapshot(args)
		if err != nil {
			return err
		}
		return browse(snap)
	},
}

func init() {
	SdbCmd.AddCommand(viewCmd)
	viewCmd.Flags().StringVar(&viewImage, "image", "", "Run this image and browse the resulting session")
}

func viewSnapshot(args []string) (*debugger.Snapshot, error) {
	if len(args) > 0 {
		if viewImage != "" {
			return nil, fmt.Errorf("either a snapshot or --image can be given, not both")
		}
		return debugger.LoadSnapshot(args[0])
	}

	env, err := loadEnvironment(os.Stderr)
	if err != nil {
		return nil, err
	}
	defer closeEnvironment(env)

	backend, err := env.newBackend(viewImage, "", io.Discard)
	if err != nil {
		return nil, err
	}
	if _, err := backend.Continue(); err != nil {
		env.logger.Warn("program did not run", "error", err)
	}
	return backend.Snapshot()
}

// viewSection is one entry of the viewer section list
type viewSection struct {
	title string
	body  string
}

func lines[T fmt.Stringer](records []T) string {
	if len(records) == 0 {
		return "(empty)"
	}
	return utils.FormatSlice(records, "\n")
}

// snapshotSections renders every part of a snapshot as plain text
func snapshotSections(snap *debugger.Snapshot) []viewSection {
	var regs strings.Builder
	if snap.Image != "" {
		fmt.Fprintf(&regs, "image: %s\n", snap.Image)
	}
	fmt.Fprintf(&regs, "state: %s\n\n", snap.State)
	for _, reg := range snap.Registers {
		fmt.Fprintf(&regs, "%-15s%-15s%-15d\n", reg.Name, utils.FormatCHex(reg.Value, 0), reg.Value)
	}

	watchpoints := "No watch points."
	if len(snap.Watchpoints) > 0 {
		watchpoints = strings.Join(utils.Map(snap.Watchpoints, func(wp debugger.Watchpoint) string {
			return fmt.Sprintf("%-8d%-20s%s", wp.ID, wp.Expr, utils.FormatCHex(wp.Value, 8))
		}), "\n")
	}

	ring := "(empty)"
	if len(snap.RingBuffer) > 0 {
		ring = strings.Join(snap.RingBuffer, "\n")
	}

	return []viewSection{
		{title: "Registers", body: strings.TrimRight(regs.String(), "\n")},
		{title: "Watch points", body: watchpoints},
		{title: debugger.TraceMemory.Title(), body: lines(snap.MemoryTrace)},
		{title: debugger.TraceException.Title(), body: lines(snap.ExceptionTrace)},
		{title: debugger.TraceDevice.Title(), body: lines(snap.DeviceTrace)},
		{title: debugger.TraceFunction.Title(), body: lines(snap.CallStack)},
		{title: debugger.TraceInstruction.Title(), body: ring},
	}
}

// browse runs the full screen viewer until the user quits
func browse(snap *debugger.Snapshot) error {
	sections := snapshotSections(snap)
	app := tview.NewApplication()

	content := tview.NewTextView().
		SetScrollable(true).
		SetWrap(false)
	content.SetBorder(true)

	show := func(i int) {
		content.SetTitle(" " + sections[i].title + " ")
		content.SetText(sections[i].body)
		content.ScrollToBeginning()
	}

	list := tview.NewList().ShowSecondaryText(false)
	for _, section := range sections {
		list.AddItem(section.title, "", 0, nil)
	}
	list.SetChangedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		show(index)
	})
	list.SetSelectedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
		app.SetFocus(content)
	})
	list.SetBorder(true).SetTitle(" rvsdb ")
	show(0)

	status := tview.NewTextView().
		SetText(fmt.Sprintf(" state: %s   Tab: switch panel   q: quit", snap.State))

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(tview.NewFlex().
			AddItem(list, 24, 0, true).
			AddItem(content, 0, 1, false), 0, 1, true).
		AddItem(status, 1, 0, false)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch {
		case event.Key() == tcell.KeyEscape, event.Rune() == 'q':
			app.Stop()
			return nil
		case event.Key() == tcell.KeyTab:
			if list.HasFocus() {
				app.SetFocus(content)
			} else {
				app.SetFocus(list)
			}
			return nil
		}
		return event
	})

	return app.SetRoot(layout, true).Run()
}
