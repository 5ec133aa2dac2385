// Package cli implements the devagentd command line: a thin cobra layer
// over the orchestration core (build.Orchestrator, specpipeline.Pipeline,
// qa.Loop) that resolves provider credentials, assembles a host.Host, and
// runs one orchestrator to completion against a project and spec
// directory on the local filesystem.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "devagentd",
	Short: "devagentd drives spec authoring, build, and QA agent sessions for one project",
	Long: `devagentd orchestrates AI coding agent sessions against a project checkout.

It runs three coordinated phases against a spec directory: the Spec
Orchestrator turns a request into spec.md and implementation_plan.json, the
Build Orchestrator implements the plan one subtask at a time, and the QA
Loop reviews and fixes the result until a reviewer session approves it.

Example:
  devagentd build --project . --spec-dir ./specs/add-rate-limiter`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default devagent.yaml in the working directory)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose logging")
	rootCmd.PersistentFlags().String("project", ".", "project working directory the coder and QA sessions operate on")
	rootCmd.PersistentFlags().String("spec-dir", "", "spec directory holding spec.md, implementation_plan.json, and qa_report.md (required)")
	rootCmd.PersistentFlags().StringSlice("capability", nil, "deployment capability available to tool gating (repeatable), e.g. browser, network")
	rootCmd.PersistentFlags().Int("max-steps", 60, "maximum agent turns per session")
	rootCmd.PersistentFlags().Int("max-tool-calls", 200, "maximum tool calls per session")
	rootCmd.PersistentFlags().Int("max-consecutive-failures", 5, "consecutive tool failures before a session aborts")
	rootCmd.PersistentFlags().Duration("bash-timeout", 2*time.Minute, "timeout applied to each bash.run tool call")
	rootCmd.PersistentFlags().String("redis-url", "", "Redis URL for a shared run.Store; empty uses an in-process store")
	rootCmd.PersistentFlags().String("mongodb-uri", "", "MongoDB connection URI for a durable memory.Store; empty uses an in-process store")
	rootCmd.PersistentFlags().String("mongodb-database", "", "MongoDB database name for memory.Store (required with --mongodb-uri)")

	for _, flag := range []string{
		"verbose", "project", "spec-dir", "capability", "max-steps", "max-tool-calls",
		"max-consecutive-failures", "bash-timeout", "redis-url", "mongodb-uri", "mongodb-database",
	} {
		_ = viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag))
	}

	rootCmd.AddCommand(buildCmd, specCmd, qaCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, "error getting working directory:", err)
			os.Exit(1)
		}
		viper.AddConfigPath(cwd)
		viper.SetConfigType("yaml")
		viper.SetConfigName("devagent")
	}

	viper.SetEnvPrefix("DEVAGENTD")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && viper.GetBool("verbose") {
		fmt.Fprintln(os.Stderr, "using config file:", viper.ConfigFileUsed())
	}
}

// runOptions collects the per-session limits and tool-gating knobs shared
// across every subcommand, bound from persistent flags via readRunOptions.
type runOptions struct {
	project                string
	specDir                string
	capabilities           []string
	maxSteps               int
	maxToolCalls           int
	maxConsecutiveFailures int
	bashTimeout            time.Duration
	redisURL               string
	mongoURI               string
	mongoDatabase          string
}

func readRunOptions(cmd *cobra.Command) (runOptions, error) {
	specDir := viper.GetString("spec-dir")
	if specDir == "" {
		return runOptions{}, fmt.Errorf("--spec-dir is required")
	}
	return runOptions{
		project:                viper.GetString("project"),
		specDir:                specDir,
		capabilities:           viper.GetStringSlice("capability"),
		maxSteps:               viper.GetInt("max-steps"),
		maxToolCalls:           viper.GetInt("max-tool-calls"),
		maxConsecutiveFailures: viper.GetInt("max-consecutive-failures"),
		bashTimeout:            viper.GetDuration("bash-timeout"),
		redisURL:               viper.GetString("redis-url"),
		mongoURI:               viper.GetString("mongodb-uri"),
		mongoDatabase:          viper.GetString("mongodb-database"),
	}, nil
}
