// Package tui renders a live view of a collection revision: every entry's
// download status, how many are downloaded and whether the collection is
// installed, updated as the store changes.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DonovanMods/lmm-collections/internal/collections"
	"github.com/DonovanMods/lmm-collections/internal/domain"
	"github.com/DonovanMods/lmm-collections/internal/jobs"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Controller is what the view needs from the collection downloader
type Controller interface {
	GetStatusObservable(ctx context.Context, entry domain.Entry, group *domain.CollectionGroup, groups <-chan *domain.CollectionGroup) *collections.StatusStream
	DownloadedItemCountObservable(ctx context.Context, revision domain.CollectionRevision, itemType domain.ItemType) *collections.Stream[int]
	IsCollectionInstalledObservable(ctx context.Context, revision domain.CollectionRevision, itemType domain.ItemType, group *domain.CollectionGroup, groups <-chan *domain.CollectionGroup) (*collections.Stream[bool], error)
	DownloadItems(ctx context.Context, revision domain.CollectionRevision, itemType domain.ItemType, maxParallel int) *jobs.Job
	RescanDownloads(ctx context.Context, revision domain.CollectionRevision) (collections.RescanReport, error)
}

// StatusMsg carries a new status for one entry
type StatusMsg struct {
	EntryID int64
	Status  domain.Status
}

// CountMsg carries the number of downloaded entries
type CountMsg struct {
	Downloaded int
}

// InstalledMsg carries whether the collection is fully installed
type InstalledMsg struct {
	Installed bool
}

// JobTickMsg asks the view to refresh download progress
type JobTickMsg struct{}

// JobDoneMsg is sent when a download job finishes
type JobDoneMsg struct {
	State jobs.State
	Err   error
}

// RescanDoneMsg is sent when a folder rescan finishes
type RescanDoneMsg struct {
	Report collections.RescanReport
	Err    error
}

// Options configures the view
type Options struct {
	ItemType    domain.ItemType
	Group       *domain.CollectionGroup
	MaxParallel int
	KeyMode     string
}

// App is the collection status view
type App struct {
	ctx      context.Context
	ctrl     Controller
	revision domain.CollectionRevision
	opts     Options

	entries   []domain.Entry
	streams   map[int64]*collections.StatusStream
	statuses  map[int64]domain.Status
	count     *collections.Stream[int]
	installed *collections.Stream[bool]

	downloaded  int
	isInstalled bool
	total       int

	job      *jobs.Job
	progress jobs.Progress
	notice   string
	err      error

	selected int
	keys     *KeyMap
	help     help.Model
	spinner  spinner.Model
	width    int
	height   int
}

// NewApp subscribes to the revision's entries. Streams stop when ctx is done.
func NewApp(ctx context.Context, ctrl Controller, revision domain.CollectionRevision, entries []domain.Entry, opts Options) (App, error) {
	if opts.ItemType == 0 {
		opts.ItemType = domain.ItemRequired
	}
	if opts.MaxParallel < 1 {
		opts.MaxParallel = collections.DefaultMaxParallel
	}

	shown := collections.FilterItems(entries, opts.ItemType)
	a := App{
		ctx:      ctx,
		ctrl:     ctrl,
		revision: revision,
		opts:     opts,
		entries:  shown,
		streams:  make(map[int64]*collections.StatusStream, len(shown)),
		statuses: make(map[int64]domain.Status, len(shown)),
		total:    collections.CountItems(shown, opts.ItemType),
		keys:     NewKeyMap(opts.KeyMode),
		help:     help.New(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		width:    80,
		height:   24,
	}

	for _, e := range shown {
		s := ctrl.GetStatusObservable(ctx, e, opts.Group, nil)
		a.streams[e.ID] = s
		a.statuses[e.ID] = s.Current()
	}
	a.count = ctrl.DownloadedItemCountObservable(ctx, revision, opts.ItemType)
	a.downloaded = a.count.Current()

	installed, err := ctrl.IsCollectionInstalledObservable(ctx, revision, opts.ItemType, opts.Group, nil)
	if err != nil {
		return App{}, err
	}
	a.installed = installed
	a.isInstalled = installed.Current()
	return a, nil
}

// Selected returns the currently selected row
func (a App) Selected() int {
	return a.selected
}

// Status returns the last status shown for an entry
func (a App) Status(entryID int64) domain.Status {
	return a.statuses[entryID]
}

// Downloaded returns the downloaded count shown
func (a App) Downloaded() int {
	return a.downloaded
}

// Installed reports whether the view shows the collection as installed
func (a App) Installed() bool {
	return a.isInstalled
}

// Job returns the running or last download job, if any
func (a App) Job() *jobs.Job {
	return a.job
}

// Init implements tea.Model
func (a App) Init() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(a.streams)+2)
	for id, s := range a.streams {
		cmds = append(cmds, listenStatus(id, s))
	}
	cmds = append(cmds, listen(a.count, func(n int) tea.Msg { return CountMsg{Downloaded: n} }))
	cmds = append(cmds, listen(a.installed, func(ok bool) tea.Msg { return InstalledMsg{Installed: ok} }))
	return tea.Batch(cmds...)
}

// listen waits for the next value of a stream. A closed stream ends the
// subscription.
func listen[T any](s *collections.Stream[T], wrap func(T) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		v, ok := <-s.C()
		if !ok {
			return nil
		}
		return wrap(v)
	}
}

func listenStatus(id int64, s *collections.StatusStream) tea.Cmd {
	return listen(s, func(st domain.Status) tea.Msg { return StatusMsg{EntryID: id, Status: st} })
}

func tickJob() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(time.Time) tea.Msg { return JobTickMsg{} })
}

func waitJob(ctx context.Context, job *jobs.Job) tea.Cmd {
	return func() tea.Msg {
		err := job.Wait(ctx)
		return JobDoneMsg{State: job.State(), Err: err}
	}
}

// Update implements tea.Model
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		return a, nil

	case StatusMsg:
		a.statuses[msg.EntryID] = msg.Status
		if s, ok := a.streams[msg.EntryID]; ok {
			return a, listenStatus(msg.EntryID, s)
		}
		return a, nil

	case CountMsg:
		a.downloaded = msg.Downloaded
		return a, listen(a.count, func(n int) tea.Msg { return CountMsg{Downloaded: n} })

	case InstalledMsg:
		a.isInstalled = msg.Installed
		return a, listen(a.installed, func(ok bool) tea.Msg { return InstalledMsg{Installed: ok} })

	case JobTickMsg:
		if a.job == nil || a.job.State() != jobs.StateRunning {
			return a, nil
		}
		a.progress = a.job.Progress()
		return a, tickJob()

	case JobDoneMsg:
		if a.job != nil {
			a.progress = a.job.Progress()
		}
		switch {
		case msg.State == jobs.StateCancelled || errors.Is(msg.Err, context.Canceled):
			a.notice = "Download cancelled"
		case msg.Err != nil:
			a.err = msg.Err
		default:
			a.notice = fmt.Sprintf("Download finished (%d/%d)", a.progress.Done, a.progress.Total)
		}
		return a, nil

	case RescanDoneMsg:
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		a.notice = fmt.Sprintf("Rescan matched %d of %d files", msg.Report.Matched, msg.Report.Scanned)
		return a, nil

	case spinner.TickMsg:
		if !a.running() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}

func (a App) running() bool {
	return a.job != nil && a.job.State() == jobs.StateRunning
}

func (a App) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case a.keys.IsQuit(msg):
		if a.running() {
			a.job.Cancel()
		}
		return a, tea.Quit

	case a.keys.IsHelp(msg):
		a.help.ShowAll = !a.help.ShowAll
		return a, nil

	case a.keys.IsUp(msg):
		if len(a.entries) > 0 {
			a.selected = (a.selected - 1 + len(a.entries)) % len(a.entries)
		}
		return a, nil

	case a.keys.IsDown(msg):
		if len(a.entries) > 0 {
			a.selected = (a.selected + 1) % len(a.entries)
		}
		return a, nil

	case a.keys.IsHome(msg):
		a.selected = 0
		return a, nil

	case a.keys.IsEnd(msg):
		if len(a.entries) > 0 {
			a.selected = len(a.entries) - 1
		}
		return a, nil

	case a.keys.IsDownload(msg):
		if a.running() {
			return a, nil
		}
		a.err = nil
		a.notice = ""
		a.progress = jobs.Progress{}
		a.job = a.ctrl.DownloadItems(a.ctx, a.revision, a.opts.ItemType, a.opts.MaxParallel)
		return a, tea.Batch(waitJob(a.ctx, a.job), tickJob(), a.spinner.Tick)

	case a.keys.IsCancel(msg):
		if a.running() {
			a.job.Cancel()
		}
		return a, nil

	case a.keys.IsRescan(msg):
		a.err = nil
		a.notice = "Rescanning downloads folder..."
		ctx, ctrl, rev := a.ctx, a.ctrl, a.revision
		return a, func() tea.Msg {
			report, err := ctrl.RescanDownloads(ctx, rev)
			return RescanDoneMsg{Report: report, Err: err}
		}
	}

	return a, nil
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	statusStyles = map[domain.StatusKind]lipgloss.Style{
		domain.StatusNotDownloaded: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		domain.StatusBundled:       lipgloss.NewStyle().Foreground(lipgloss.Color("69")),
		domain.StatusInLibrary:     lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		domain.StatusInstalled:     lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
)

// View implements tea.Model
func (a App) View() string {
	var b strings.Builder

	name := a.revision.Collection.Name
	if name == "" {
		name = a.revision.Collection.Slug
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s (revision %d)", name, a.revision.RevisionNumber)))
	b.WriteString("\n")

	summary := fmt.Sprintf("%s items: %d/%d downloaded", a.opts.ItemType, a.downloaded, a.total)
	if a.opts.Group != nil {
		if a.isInstalled {
			summary += "  " + statusStyles[domain.StatusInstalled].Render("installed")
		} else {
			summary += "  " + dimStyle.Render("not fully installed")
		}
	}
	b.WriteString(dimStyle.Render(summary))
	b.WriteString("\n\n")

	if len(a.entries) == 0 {
		b.WriteString("No entries of this type.\n")
	}
	for i, e := range a.entries {
		status := a.statuses[e.ID]
		cursor := "  "
		line := fmt.Sprintf("%-40s %-9s", truncate(e.Name, 40), e.Kind)
		if i == a.selected {
			cursor = selectedStyle.Render("> ")
			line = selectedStyle.Render(line)
		}
		badge := statusStyles[status.Kind].Render(status.Kind.String())
		if e.ManualOnly && status.IsNotDownloaded() {
			badge += dimStyle.Render(" (manual)")
		}
		fmt.Fprintf(&b, "%s%s %s\n", cursor, line, badge)
	}

	if a.job != nil {
		b.WriteString("\n")
		if a.running() {
			b.WriteString(a.spinner.View() + " ")
		}
		b.WriteString(progressBar(a.progress, 30))
		b.WriteString("\n")
	}
	if a.notice != "" {
		b.WriteString("\n" + a.notice + "\n")
	}
	if a.err != nil {
		b.WriteString("\n" + errStyle.Render(fmt.Sprintf("Error: %v", a.err)) + "\n")
	}

	b.WriteString("\n" + a.help.View(a.keys))
	return b.String()
}

func progressBar(p jobs.Progress, width int) string {
	filled := int(p.Fraction() * float64(width))
	return fmt.Sprintf("[%s%s] %d/%d", strings.Repeat("#", filled), strings.Repeat(".", width-filled), p.Done, p.Total)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Run starts the view and blocks until the user quits
func Run(ctx context.Context, ctrl Controller, revision domain.CollectionRevision, entries []domain.Entry, opts Options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app, err := NewApp(ctx, ctrl, revision, entries, opts)
	if err != nil {
		return err
	}
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
