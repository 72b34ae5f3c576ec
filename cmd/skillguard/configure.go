package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Wrapper for survey functions to allow mocking in tests
var askOneFunc = survey.AskOne

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactively set up SkillGuard configuration",
	Long:  `Runs an interactive wizard covering scan behavior, Slack notifications and scan history storage.`,
	RunE:  runConfigure,
}

func init() {
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Welcome to SkillGuard Setup!")
	fmt.Fprintln(out, "----------------------------")

	answers := struct {
		Offline        bool
		OSVURL         string
		EnableSlack    bool
		SlackWebhook   string
		WebhookToEnv   bool
		SlackMinLevel  string
		HistoryBackend string
		HistoryTarget  string
	}{}

	// 1. Scan behavior
	err := askOneFunc(&survey.Confirm{
		Message: "Run scans offline by default (skip npm audit and OSV)?",
		Default: false,
	}, &answers.Offline)
	if err != nil {
		return err
	}

	osvDefault := viper.GetString("osv.url")
	if osvDefault == "" {
		osvDefault = "https://api.osv.dev"
	}
	err = askOneFunc(&survey.Input{
		Message: "OSV API base URL:",
		Default: osvDefault,
	}, &answers.OSVURL)
	if err != nil {
		return err
	}

	// 2. Notifications
	err = askOneFunc(&survey.Confirm{
		Message: "Enable Slack notifications?",
		Default: false,
	}, &answers.EnableSlack)
	if err != nil {
		return err
	}

	if answers.EnableSlack {
		err = askOneFunc(&survey.Password{
			Message: "Slack webhook URL:",
		}, &answers.SlackWebhook)
		if err != nil {
			return err
		}
		err = askOneFunc(&survey.Select{
			Message: "Notify when the risk level reaches:",
			Options: []string{"low", "medium", "high", "critical"},
			Default: "high",
		}, &answers.SlackMinLevel)
		if err != nil {
			return err
		}
		err = askOneFunc(&survey.Confirm{
			Message: "Save the webhook to a local .env file instead of the config file?",
			Default: true,
		}, &answers.WebhookToEnv)
		if err != nil {
			return err
		}
	}

	// 3. History storage
	err = askOneFunc(&survey.Select{
		Message: "Where should scan history be stored?",
		Options: []string{"sqlite", "postgres"},
		Default: "sqlite",
	}, &answers.HistoryBackend)
	if err != nil {
		return err
	}

	if answers.HistoryBackend == "postgres" {
		err = askOneFunc(&survey.Input{
			Message: "Postgres DSN:",
		}, &answers.HistoryTarget)
	} else {
		err = askOneFunc(&survey.Input{
			Message: "SQLite database path:",
			Default: ".skillguard.db",
		}, &answers.HistoryTarget)
	}
	if err != nil {
		return err
	}

	// --- Saving Configuration ---

	viper.Set("offline", answers.Offline)
	viper.Set("osv.url", answers.OSVURL)
	if answers.EnableSlack {
		viper.Set("notifications.slack.min_level", answers.SlackMinLevel)
		if !answers.WebhookToEnv {
			viper.Set("notifications.slack.webhook_url", answers.SlackWebhook)
		}
	}
	viper.Set("history.backend", answers.HistoryBackend)
	if answers.HistoryBackend == "postgres" {
		viper.Set("history.dsn", answers.HistoryTarget)
	} else {
		viper.Set("history.path", answers.HistoryTarget)
	}

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = "skillguard.yaml"
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("could not write %s: %w", configFile, err)
	}
	fmt.Fprintf(out, "Configuration saved to %s\n", configFile)

	if answers.EnableSlack && answers.WebhookToEnv && answers.SlackWebhook != "" {
		if err := appendEnvLine("SLACK_WEBHOOK_URL", answers.SlackWebhook); err != nil {
			fmt.Fprintf(out, "Warning: could not update .env: %v\n", err)
		} else {
			fmt.Fprintln(out, "Webhook saved to .env")
		}
	}

	fmt.Fprintln(out, "\nSetup complete! Run 'skillguard scan' to check a package.")
	return nil
}

// appendEnvLine adds key=value to .env unless the key is already present.
func appendEnvLine(key, value string) error {
	existing, _ := os.ReadFile(".env")
	existingStr := string(existing)
	if strings.Contains(existingStr, key+"=") {
		return nil
	}

	f, err := os.OpenFile(".env", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	line := ""
	if len(existing) > 0 && !strings.HasSuffix(existingStr, "\n") {
		line = "\n"
	}
	line += fmt.Sprintf("%s=%s\n", key, value)

	_, err = f.WriteString(line)
	return err
}
