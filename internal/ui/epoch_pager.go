package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/litescript/ls-orbit/internal/track"
)

// defaultPageSize is used until the window size is known.
const defaultPageSize = 15

// EpochSource is the part of the tracker the pager reads.
type EpochSource interface {
	Epochs(offset, limit int) (track.EpochList, error)
	Speed(epoch string) (track.SpeedView, error)
}

// EpochPager pages through the epoch index.
type EpochPager struct {
	source   EpochSource
	total    int
	offset   int
	pageSize int
	selected int

	page  track.EpochList
	speed *track.SpeedView
	err   error
}

// NewEpochPager creates a pager over source.
func NewEpochPager(source EpochSource) EpochPager {
	return EpochPager{source: source, pageSize: defaultPageSize}
}

// SetSize fits the page to the available rows.
func (p EpochPager) SetSize(width, height int) EpochPager {
	rows := height - 8
	if rows < 3 {
		rows = 3
	}
	if rows != p.pageSize {
		p.pageSize = rows
		p.offset -= p.offset % p.pageSize
		p = p.reload()
	}
	return p
}

// Refresh records the dataset size and reloads the current page, clamping the
// offset when the dataset shrank.
func (p EpochPager) Refresh(total int) EpochPager {
	p.total = total
	if p.offset >= total {
		p.offset = 0
		if total > 0 {
			p.offset = (total - 1) / p.pageSize * p.pageSize
		}
	}
	return p.reload()
}

func (p EpochPager) reload() EpochPager {
	p.speed = nil
	if p.total == 0 {
		p.page = nil
		p.selected = 0
		p.err = nil
		return p
	}

	limit := p.pageSize
	if p.offset+limit > p.total {
		limit = p.total - p.offset
	}
	page, err := p.source.Epochs(p.offset, limit)
	if err != nil {
		p.page = nil
		p.err = err
		return p
	}
	p.page = page
	p.err = nil
	if p.selected >= len(page) {
		p.selected = len(page) - 1
	}
	if p.selected < 0 {
		p.selected = 0
	}

	if len(page) > 0 {
		if sv, err := p.source.Speed(page[p.selected].Epoch); err == nil {
			p.speed = &sv
		} else {
			p.err = err
		}
	}
	return p
}

// Update handles paging and selection keys.
func (p EpochPager) Update(msg tea.Msg) (EpochPager, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	switch key.String() {
	case "n", "right", "pgdown":
		if p.offset+p.pageSize < p.total {
			p.offset += p.pageSize
			p.selected = 0
			p = p.reload()
		}
	case "p", "left", "pgup":
		if p.offset > 0 {
			p.offset -= p.pageSize
			if p.offset < 0 {
				p.offset = 0
			}
			p.selected = 0
			p = p.reload()
		}
	case "down", "j":
		if p.selected < len(p.page)-1 {
			p.selected++
			p = p.reload()
		}
	case "up", "k":
		if p.selected > 0 {
			p.selected--
			p = p.reload()
		}
	case "g", "home":
		p.offset, p.selected = 0, 0
		p = p.reload()
	}
	return p, nil
}

// Offset returns the index of the first epoch on the page.
func (p EpochPager) Offset() int {
	return p.offset
}

// Selected returns the selected epoch, or "" when the page is empty.
func (p EpochPager) Selected() string {
	if p.selected < len(p.page) {
		return p.page[p.selected].Epoch
	}
	return ""
}

// View renders the page.
func (p EpochPager) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Epochs"))
	b.WriteString("\n")

	if p.err != nil {
		b.WriteString(errorStyle.Render(p.err.Error()))
		b.WriteString("\n")
	}
	if p.total == 0 {
		b.WriteString(dimStyle.Render("No ephemeris loaded. Press r to load."))
		return b.String()
	}

	b.WriteString(headerStyle.Render(fmt.Sprintf("%6s  %-24s", "#", "EPOCH")))
	b.WriteString("\n")
	for i, e := range p.page {
		line := fmt.Sprintf("%6d  %-24s", e.Position, e.Epoch)
		if i == p.selected {
			b.WriteString(selectedRowStyle.Render("▶" + line))
		} else {
			b.WriteString(rowStyle.Render(" " + line))
		}
		b.WriteString("\n")
	}

	if p.speed != nil {
		b.WriteString("\n")
		b.WriteString(field("Speed", fmt.Sprintf("%.4f %s", p.speed.Speed.Value, p.speed.Speed.Units)))
		b.WriteString("\n")
	}

	pages := (p.total + p.pageSize - 1) / p.pageSize
	b.WriteString(dimStyle.Render(fmt.Sprintf("page %d/%d · %d epochs", p.offset/p.pageSize+1, pages, p.total)))
	return b.String()
}
