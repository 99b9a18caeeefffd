// Package tui renders the shared book feed as an interactive terminal
// list with pull-to-refresh and infinite-scroll semantics.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"bookworm/pkg/feed"
)

type loadDoneMsg struct{ err error }

type deleteDoneMsg struct {
	id  string
	err error
}

// FeedView is the bubbletea model for browsing the feed.
type FeedView struct {
	sync    *feed.Synchronizer
	spin    spinner.Model
	cursor  int
	status  string
	lastErr error
	width   int
	height  int
}

// NewFeedView builds the feed browser around a synchronizer.
func NewFeedView(sync *feed.Synchronizer) *FeedView {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &FeedView{sync: sync, spin: sp}
}

// Init implements tea.Model.
func (v *FeedView) Init() tea.Cmd {
	return tea.Batch(v.spin.Tick, v.loadFirstPage())
}

func (v *FeedView) loadFirstPage() tea.Cmd {
	return func() tea.Msg {
		return loadDoneMsg{err: v.sync.Load(context.Background(), 1, false)}
	}
}

func (v *FeedView) refresh() tea.Cmd {
	return func() tea.Msg {
		return loadDoneMsg{err: v.sync.Refresh(context.Background())}
	}
}

func (v *FeedView) loadMore() tea.Cmd {
	return func() tea.Msg {
		return loadDoneMsg{err: v.sync.LoadMore(context.Background())}
	}
}

func (v *FeedView) deletePost(id string) tea.Cmd {
	return func() tea.Msg {
		return deleteDoneMsg{id: id, err: v.sync.Delete(context.Background(), id)}
	}
}

// Update implements tea.Model.
func (v *FeedView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spin, cmd = v.spin.Update(msg)
		return v, cmd

	case loadDoneMsg:
		v.lastErr = msg.err
		st := v.sync.State()
		if v.cursor >= len(st.Posts) && len(st.Posts) > 0 {
			v.cursor = len(st.Posts) - 1
		}
		return v, nil

	case deleteDoneMsg:
		if msg.err != nil {
			v.lastErr = msg.err
			v.status = ""
			return v, nil
		}
		v.lastErr = nil
		v.status = "Book deleted"
		st := v.sync.State()
		if v.cursor >= len(st.Posts) && v.cursor > 0 {
			v.cursor--
		}
		return v, nil

	case tea.KeyMsg:
		return v.handleKey(msg)
	}
	return v, nil
}

func (v *FeedView) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := v.sync.State()
	switch msg.String() {
	case "q", "ctrl+c":
		return v, tea.Quit

	case "r":
		v.status = ""
		return v, v.refresh()

	case "j", "down":
		if v.cursor < len(st.Posts)-1 {
			v.cursor++
			return v, nil
		}
		// at the bottom, pull the next page
		return v, v.loadMore()

	case "k", "up":
		if v.cursor > 0 {
			v.cursor--
		}
		return v, nil

	case "d":
		if st.PendingDeleteID != "" || v.cursor >= len(st.Posts) {
			return v, nil
		}
		v.status = ""
		return v, v.deletePost(st.Posts[v.cursor].ID)
	}
	return v, nil
}

// View implements tea.Model.
func (v *FeedView) View() string {
	st := v.sync.State()
	var b strings.Builder

	header := "BookWorm"
	if st.Refreshing {
		header += "  " + v.spin.View() + " refreshing"
	} else if st.Loading {
		header += "  " + v.spin.View() + " loading"
	}
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n")

	if len(st.Posts) == 0 && !st.Loading && !st.Refreshing {
		b.WriteString(authorStyle.Render("No recommendations yet. Press r to refresh."))
		b.WriteString("\n")
	}

	for i, post := range st.Posts {
		line := fmt.Sprintf("%s %s  %s", ratingStars(post.Rating), post.Title, authorStyle.Render("by "+post.User.Username))
		if post.ID == st.PendingDeleteID {
			line += "  " + v.spin.View() + " deleting"
		}
		if i == v.cursor {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
		if i == v.cursor && post.Caption != "" {
			b.WriteString(authorStyle.Render("    " + post.Caption))
			b.WriteString("\n")
		}
	}

	if st.HasMore {
		b.WriteString(authorStyle.Render("  more below..."))
		b.WriteString("\n")
	}

	if v.lastErr != nil {
		b.WriteString(errorStyle.Render("error: " + v.lastErr.Error()))
		b.WriteString("\n")
	} else if v.status != "" {
		b.WriteString(v.status)
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("r refresh · j/k move · d delete · q quit"))
	b.WriteString("\n")
	return b.String()
}
