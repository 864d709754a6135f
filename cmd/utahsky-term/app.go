package main

import (
	"context"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/unklstewy/opensky-utah/internal/service"
)

// tracker is what the terminal client needs from service.Service.
type tracker interface {
	Status() service.Status
	Refresh(ctx context.Context)
	ToggleDetailVisibility(icao24 string) (visible, found bool)
	ClearError()
}

// App is the terminal client.
type App struct {
	ctx     context.Context
	tracker tracker

	// UI components
	tviewApp   *tview.Application
	table      *tview.Table
	details    *tview.TextView
	statusBar  *tview.TextView
	logs       *tview.TextView
	rootLayout *tview.Flex

	mu     sync.Mutex
	status service.Status

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewApp builds the UI. Call Attach before Run.
func NewApp(ctx context.Context) *App {
	a := &App{
		ctx:      ctx,
		stopChan: make(chan struct{}),
	}
	a.setupUI()
	return a
}

// Attach sets the tracker the UI reads from.
func (a *App) Attach(t tracker) {
	a.tracker = t
}

// LogWriter returns a writer that appends to the log panel. New lines show
// up on the next redraw.
func (a *App) LogWriter() *tview.TextView {
	return a.logs
}

func (a *App) setupUI() {
	a.tviewApp = tview.NewApplication()

	a.table = tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0)
	a.table.SetBorder(true).SetTitle(" Aircraft over Utah ")
	a.table.SetSelectionChangedFunc(func(row, _ int) {
		a.mu.Lock()
		status := a.status
		a.mu.Unlock()
		a.showDetails(status, row)
	})

	a.details = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	a.details.SetBorder(true).SetTitle(" Details ")

	a.statusBar = tview.NewTextView().
		SetDynamicColors(true)

	a.logs = tview.NewTextView().
		SetDynamicColors(false).
		SetScrollable(true).
		SetMaxLines(200)
	a.logs.SetBorder(true).SetTitle(" Logs ")

	controls := tview.NewTextView().
		SetDynamicColors(true).
		SetText(controlsText)
	controls.SetBorder(true).SetTitle(" Controls ")

	sidebar := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.details, 0, 5, false).
		AddItem(controls, 8, 0, false).
		AddItem(a.logs, 0, 3, false)

	body := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.table, 0, 6, true).
		AddItem(sidebar, 0, 4, false)

	a.rootLayout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.statusBar, 1, 0, false).
		AddItem(body, 0, 1, true)

	a.tviewApp.SetRoot(a.rootLayout, true)
	a.tviewApp.SetInputCapture(a.handleKeyboard)
}

const controlsText = `[white]↑/↓[-]    Select
[white]ENTER[-]  Toggle details
[white]r[-]      Refresh now
[white]e[-]      Dismiss error
[white]q[-]      Quit`

func (a *App) handleKeyboard(event *tcell.EventKey) *tcell.EventKey {
	switch event.Rune() {
	case 'q':
		a.Stop()
		return nil
	case 'r':
		go func() {
			a.tracker.Refresh(a.ctx)
			a.tviewApp.QueueUpdateDraw(a.render)
		}()
		return nil
	case 'e':
		a.tracker.ClearError()
		a.render()
		return nil
	}

	if event.Key() == tcell.KeyEnter {
		a.toggleSelected()
		return nil
	}
	return event
}

func (a *App) toggleSelected() {
	row, _ := a.table.GetSelection()
	a.mu.Lock()
	status := a.status
	a.mu.Unlock()

	if i := row - 1; i >= 0 && i < len(status.Aircraft) {
		a.tracker.ToggleDetailVisibility(status.Aircraft[i].ICAO24)
		a.render()
	}
}

// render re-reads the tracker and redraws every panel. It must run on the
// UI goroutine.
func (a *App) render() {
	status := a.tracker.Status()
	a.mu.Lock()
	a.status = status
	a.mu.Unlock()

	a.statusBar.SetText(statusText(status))

	row, _ := a.table.GetSelection()
	a.table.Clear()
	for c, h := range tableHeader {
		a.table.SetCell(0, c, tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false))
	}
	for r, cells := range aircraftRows(status.Aircraft) {
		for c, text := range cells {
			cell := tview.NewTableCell(text)
			if status.Aircraft[r].DetailsVisible {
				cell.SetTextColor(tcell.ColorAqua)
			}
			a.table.SetCell(r+1, c, cell)
		}
	}
	if row < 1 {
		row = 1
	}
	if row > len(status.Aircraft) {
		row = len(status.Aircraft)
	}
	if row >= 1 {
		a.table.Select(row, 0)
	}
	a.showDetails(status, row)
}

func (a *App) showDetails(status service.Status, row int) {
	i := row - 1
	if i < 0 || i >= len(status.Aircraft) {
		a.details.SetText("[gray]No aircraft selected[-]")
		return
	}
	a.details.SetText(detailsText(status.Aircraft[i]))
}

// Run starts polling and blocks until the UI exits.
func (a *App) Run() error {
	go a.updateLoop()
	return a.tviewApp.Run()
}

// updateLoop redraws from the tracker every second. The tracker has no
// change notification.
func (a *App) updateLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	a.tviewApp.QueueUpdateDraw(a.render)
	for {
		select {
		case <-ticker.C:
			a.tviewApp.QueueUpdateDraw(a.render)
		case <-a.stopChan:
			return
		case <-a.ctx.Done():
			return
		}
	}
}

// Stop ends the update loop and the UI.
func (a *App) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopChan)
		a.tviewApp.Stop()
	})
}
