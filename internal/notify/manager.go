package notify

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"skillguard/internal/finding"
)

// Manager decides when a scan outcome is worth announcing and dispatches it
// to the configured providers. Delivery problems are logged, never fatal.
type Manager struct {
	notifiers []Notifier
	minLevel  finding.RiskLevel
	logger    func(string, ...interface{})
}

// NewManager creates a Manager from the notification configuration.
func NewManager(logger func(string, ...interface{})) *Manager {
	m := &Manager{
		logger:   logger,
		minLevel: finding.RiskHigh,
	}

	if level, err := finding.ParseRiskLevel(viper.GetString("notifications.slack.min_level")); err == nil {
		m.minLevel = level
	}
	if webhook := viper.GetString("notifications.slack.webhook_url"); webhook != "" {
		m.notifiers = append(m.notifiers, NewSlackNotifier(webhook))
	}

	return m
}

// Enabled reports whether any provider is configured.
func (m *Manager) Enabled() bool {
	return len(m.notifiers) > 0
}

// NotifyScan announces a finished scan when its level clears the configured
// threshold.
func (m *Manager) NotifyScan(ctx context.Context, res *finding.ScanResult) {
	if !m.Enabled() {
		return
	}
	if !res.RiskLevel.AtLeast(m.minLevel) {
		if m.logger != nil {
			m.logger("Skipping notification: %s is below %s", res.RiskLevel, m.minLevel)
		}
		return
	}

	message := ScanMessage(res)
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, message); err != nil {
			if m.logger != nil {
				m.logger("Failed to send notification: %v", err)
			}
		}
	}
}

// ScanMessage renders the one-line summary sent to providers.
func ScanMessage(res *finding.ScanResult) string {
	icon := ":large_green_circle:"
	switch res.RiskLevel {
	case finding.RiskCritical, finding.RiskHigh:
		icon = ":red_circle:"
	case finding.RiskMedium:
		icon = ":large_yellow_circle:"
	}

	return fmt.Sprintf("%s SkillGuard scanned %s: risk %d/100 (%s), %d code findings, %d vulnerable dependencies",
		icon, res.Path, res.RiskScore, res.RiskLevel,
		len(res.CodeFindings), len(res.DependencyFindings))
}
