// Package cli implements the rgbctl command tree.
package cli

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"rgbctl/internal/config"
)

type app struct {
	out, errOut io.Writer
	cfgPath     string
	cfg         config.Config
	log         zerolog.Logger
}

// NewRootCmd constructs the rgbctl command tree. Command output goes to out,
// logs to errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut, log: zerolog.Nop()}
	root := &cobra.Command{
		Use:           "rgbctl",
		Short:         "Watch, simulate and poke the event stream of an RGB controller",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	// Persistent flags -> app
	root.PersistentFlags().StringVar(&a.cfgPath, "config", envStr("RGBCTL_CONFIG", ""), "Config file .yaml|.json|.toml (defaults RGBCTL_CONFIG, ./rgbctl.yaml or ~/.config/rgbctl/config.*)")
	root.PersistentFlags().String("log-level", envStr("RGBCTL_LOG_LEVEL", "info"), "Log level: debug|info|warn|error (defaults RGBCTL_LOG_LEVEL or info)")
	root.PersistentFlags().String("log-format", envStr("RGBCTL_LOG_FORMAT", "console"), "Log format: console|json (defaults RGBCTL_LOG_FORMAT or console)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, used, err := config.Discover(a.cfgPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
		a.log, err = newLogger(stringFlag(cmd, "log-level", cfg.LogLevel), stringFlag(cmd, "log-format", cfg.LogFormat), a.errOut)
		if err != nil {
			return err
		}
		if used != "" {
			a.log.Debug().Str("path", used).Msg("config loaded")
		}
		return nil
	}

	root.AddCommand(a.watchCmd(), a.simCmd(), a.pushCmd())

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(out) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(out) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(out, true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenPowerShellCompletionWithDesc(out) }})
	root.AddCommand(completionCmd)

	return root
}
