package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/penwyp/go-xpdf-session/internal/application"
	"github.com/penwyp/go-xpdf-session/internal/config"
	"github.com/penwyp/go-xpdf-session/internal/instance"
	"github.com/penwyp/go-xpdf-session/internal/util"
	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var (
	// Logging related
	debug bool

	// Config
	cfgFile string

	// Instance handling
	openArg   bool
	remoteArg string
	watchArg  bool

	// Viewer options
	fullScreen    bool
	rotateArg     int
	passwordArg   string
	printCommands bool

	rootCmd = &cobra.Command{
		Use:   "xpdf [flags] [<PDF-file> [:<page> | +<dest>]] ...",
		Short: "PDF viewer session manager",
		Long: `xpdf opens PDF documents and remembers the last page viewed in each one.

A running viewer can be controlled from the command line. With --open the
file is handed to the viewer registered as "default", which is started if
none is running. With --remote <name> every remaining argument is sent as a
command to the viewer registered under <name>.

Examples:
  xpdf report.pdf :12                       # Open report.pdf at page 12
  xpdf --open report.pdf                    # Open in a tab of the default viewer
  xpdf --remote work 'gotoPage(3)' raise    # Control the viewer named "work"
  xpdf pages list                           # Show remembered pages`,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		Version:      Version,
		RunE:         runViewer,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "cfg", "",
		"Configuration file to use in place of ~/.config/xpdf/config.toml")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug logging to the console")

	rootCmd.Flags().BoolVar(&openArg, "open", false,
		"Open file using a default remote server")
	rootCmd.Flags().StringVar(&remoteArg, "remote", "",
		"Remote server mode - remaining args are commands")
	rootCmd.Flags().BoolVar(&watchArg, "watch", true,
		"Pick up page numbers saved by other instances immediately")

	rootCmd.Flags().BoolVar(&fullScreen, "fullscreen", false,
		"Run in full-screen (presentation) mode")
	rootCmd.Flags().IntVar(&rotateArg, "rot", 0,
		"Initial page rotation: 0, 90, 180, or 270")
	rootCmd.Flags().StringVar(&passwordArg, "pw", "",
		"Password (for encrypted files)")
	rootCmd.Flags().BoolVar(&printCommands, "cmd", false,
		"Print commands as they're executed")
}

// setup loads the configuration and starts logging.
func setup() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logLevel := cfg.LogLevel
	if debug {
		logLevel = "debug"
	}
	opts := util.LoggerOptions{
		Level:   logLevel,
		Format:  util.LogFormat(cfg.LogFormat),
		File:    cfg.LogFile,
		Console: debug,
	}
	if err := util.InitLogger(opts); err != nil {
		// Logging is not worth refusing to start over.
		fmt.Fprintf(os.Stderr, "xpdf: %v\n", err)
		opts.File = ""
		_ = util.InitLogger(opts)
	}
	return cfg, nil
}

func runViewer(cmd *cobra.Command, args []string) error {
	if err := validateRotation(rotateArg); err != nil {
		return err
	}

	cfg, err := setup()
	if err != nil {
		return err
	}
	defer util.SetLogger(nil)

	opts := application.Options{
		Intent: instance.Intent{
			Open:       openArg,
			Remote:     remoteArg,
			Args:       args,
			FullScreen: fullScreen,
			Rotate:     rotateArg,
			Password:   passwordArg,
		},
		WatchPages: watchArg,
	}
	if printCommands {
		opts.PrintCommands = cmd.OutOrStdout()
	}

	app, err := application.New(cfg, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	delegated, err := app.Run(ctx)
	if err != nil {
		return err
	}
	if delegated {
		util.LogDebug("Request handed to running instance")
	}
	return nil
}

func validateRotation(rot int) error {
	switch rot {
	case 0, 90, 180, 270:
		return nil
	default:
		return fmt.Errorf("invalid rotation %d: must be 0, 90, 180, or 270", rot)
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
