package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"skillguard/internal/config"
	"skillguard/internal/report"
	"skillguard/internal/telemetry"
)

var exit = os.Exit
var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "skillguard",
	Short: "SkillGuard: security scanner for agent skills and npm packages",
	Long: `SkillGuard inspects a skill or package directory before you install it.
It flags dangerous code patterns, reconciles dependency vulnerabilities from
npm audit and the OSV database, and condenses everything into a 0-100 risk
score with a recommendation.`,
	SilenceErrors: true,
	SilenceUsage:  true, // Prevents printing usage on error
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n=== CRITICAL ERROR: Command Execution Panic ===\n")
			fmt.Fprintf(os.Stderr, "Error: %v\n", r)
			exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	registerGlobalFlags(rootCmd.PersistentFlags())
}

// registerGlobalFlags defines the flags shared by every subcommand and binds
// them into viper so config file values and flags resolve the same way.
func registerGlobalFlags(flags *pflag.FlagSet) {
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./skillguard.yaml or $HOME/.skillguard/skillguard.yaml)")
	flags.Bool("debug", false, "Enable debug logging")
	flags.Bool("no-color", false, "Disable colored output")
	flags.Bool("offline", false, "Skip scan sources that need the network")
	flags.String("log-file", "", "Also write logs to this file")

	viper.BindPFlag("debug", flags.Lookup("debug"))
	viper.BindPFlag("no_color", flags.Lookup("no-color"))
	viper.BindPFlag("offline", flags.Lookup("offline"))
	viper.BindPFlag("log_file", flags.Lookup("log-file"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.Load(cfgFile)

	if viper.GetBool("no_color") {
		report.DisableColor()
	}

	if err := config.ValidateConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exit(1)
	}

	telemetry.InitLogger(viper.GetBool("debug"), viper.GetString("log_file"))
}
