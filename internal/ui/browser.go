package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"skillguard/internal/finding"
)

// FindingItem represents a single code or dependency finding in the list.
// Exactly one of Code and Dep is set.
type FindingItem struct {
	Code *finding.CodeFinding
	Dep  *finding.DependencyFinding
}

func (i FindingItem) Title() string {
	if i.Code != nil {
		return fmt.Sprintf("📄 %s:%d  %s", i.Code.File, i.Code.Line, i.Code.Category)
	}
	return fmt.Sprintf("📦 %s@%s", i.Dep.Name, i.Dep.Version)
}

func (i FindingItem) Description() string {
	if i.Code != nil {
		return fmt.Sprintf("%s | %s", i.Code.Severity, i.Code.Description)
	}
	return fmt.Sprintf("%s | %s", i.Dep.Severity, i.Dep.Reason)
}

func (i FindingItem) FilterValue() string {
	if i.Code != nil {
		return i.Code.File + " " + i.Code.Category
	}
	return i.Dep.Name
}

func (i FindingItem) severity() finding.Severity {
	if i.Code != nil {
		return i.Code.Severity
	}
	return i.Dep.Severity
}

// BrowserModel is the Bubble Tea model for browsing the findings of one scan.
type BrowserModel struct {
	list          list.Model
	viewport      viewport.Model
	viewingDetail bool
	statusMessage string

	width  int
	height int
}

// NewBrowserModel creates a browser over the findings of a scan result.
func NewBrowserModel(res *finding.ScanResult) BrowserModel {
	items := make([]list.Item, 0, res.TotalFindings())
	for idx := range res.CodeFindings {
		items = append(items, FindingItem{Code: &res.CodeFindings[idx]})
	}
	for idx := range res.DependencyFindings {
		items = append(items, FindingItem{Dep: &res.DependencyFindings[idx]})
	}

	delegate := list.NewDefaultDelegate()
	l := list.New(items, delegate, 0, 0)
	l.Title = fmt.Sprintf("SkillGuard: %d findings, risk %d/100 (%s)", res.TotalFindings(), res.RiskScore, res.RiskLevel)
	l.Styles.Title = titleStyle
	l.SetShowHelp(true)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		}
	}
	l.AdditionalFullHelpKeys = func() []key.Binding {
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "show finding details")),
			key.NewBinding(key.WithKeys("backspace"), key.WithHelp("backspace", "back to list")),
		}
	}

	return BrowserModel{list: l, viewport: viewport.New(0, 0)}
}

func (m BrowserModel) Init() tea.Cmd {
	return nil
}

func (m BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height)
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 1
		return m, nil

	case tea.KeyMsg:
		if m.viewingDetail {
			switch msg.String() {
			case "q", "esc", "backspace":
				m.viewingDetail = false
				m.statusMessage = ""
				return m, nil
			default:
				m.viewport, cmd = m.viewport.Update(msg)
				return m, cmd
			}
		}

		// List mode. The list's own keymap handles q/esc quitting.
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "enter":
			item := m.list.SelectedItem()
			if item == nil {
				return m, nil
			}
			f := item.(FindingItem)
			m.viewingDetail = true
			m.viewport.SetContent(severityBadge(f.severity()) + "\n" + renderDetail(detailMarkdown(f)))
			m.viewport.GotoTop()
			m.statusMessage = "Viewing: " + f.FilterValue()
			return m, nil
		}
	}

	if !m.viewingDetail {
		m.list, cmd = m.list.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m BrowserModel) View() string {
	if m.viewingDetail {
		return fmt.Sprintf("%s\n%s", m.headerView(), m.viewport.View())
	}
	return fmt.Sprintf("%s\n%s", m.statusView(), m.list.View())
}

func (m BrowserModel) headerView() string {
	title := "Finding Details (q/esc to go back)"
	line := strings.Repeat("─", max(0, m.viewport.Width-len(title)))
	return detailHeaderStyle.Render(title + line)
}

func (m BrowserModel) statusView() string {
	if m.statusMessage == "" {
		return ""
	}
	return statusStyle.Render(m.statusMessage)
}

// detailMarkdown builds the markdown document shown for one finding.
func detailMarkdown(f FindingItem) string {
	var b strings.Builder

	if f.Code != nil {
		c := f.Code
		fmt.Fprintf(&b, "# %s\n\n", c.Category)
		fmt.Fprintf(&b, "**Severity:** %s\n\n", c.Severity)
		fmt.Fprintf(&b, "**Location:** %s:%d:%d\n\n", c.File, c.Line, c.Column)
		if c.Language != "" {
			fmt.Fprintf(&b, "**Language:** %s\n\n", c.Language)
		}
		fmt.Fprintf(&b, "%s\n", c.Description)
		if c.Snippet != "" {
			fmt.Fprintf(&b, "\n```\n%s\n```\n", c.Snippet)
		}
		return b.String()
	}

	d := f.Dep
	fmt.Fprintf(&b, "# %s@%s\n\n", d.Name, d.Version)
	fmt.Fprintf(&b, "**Severity:** %s", d.Severity)
	if d.CVSSScore > 0 {
		fmt.Fprintf(&b, " (CVSS %.1f)", d.CVSSScore)
	}
	b.WriteString("\n\n")
	if d.CVE != "" {
		fmt.Fprintf(&b, "**ID:** %s\n\n", d.CVE)
	}
	fmt.Fprintf(&b, "**Source:** %s\n\n", d.Source)
	fmt.Fprintf(&b, "%s\n", d.Reason)
	if d.VulnerableVersions != "" {
		fmt.Fprintf(&b, "\n**Vulnerable versions:** %s\n", d.VulnerableVersions)
	}
	if d.FixAvailable != "" {
		fmt.Fprintf(&b, "\n**Fix:** %s\n", d.FixAvailable)
	}
	if d.URL != "" {
		fmt.Fprintf(&b, "\n[Advisory](%s)\n", d.URL)
	}
	return b.String()
}

// renderDetail renders markdown for the viewport, falling back to the raw
// text when the terminal renderer is unavailable.
func renderDetail(markdown string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return markdown
	}
	out, err := renderer.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}
