// Package main provides the entry point for the readaloud CLI application.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/bus"
	"github.com/dgnsrekt/readaloud/internal/page"
	"github.com/dgnsrekt/readaloud/tts"
	"github.com/dgnsrekt/readaloud/ui"
	"github.com/dgnsrekt/readaloud/utils"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

const appName = "readaloud"

// readerTab identifies the document opened by the reader.
const readerTab tts.TabID = 1

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	readmeNames = []string{"README.md", "README", "Readme.md", "Readme", "readme.md", "readme"}
	configFile  string

	rootCmd = &cobra.Command{
		Use:   "readaloud [FILE]",
		Short: "Read markdown documents aloud in the terminal",
		Long: paragraph(
			fmt.Sprintf("\nRead markdown documents %s, with the spoken sentence highlighted as it goes.", keyword("aloud")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfigFlag(cmd)
		},
		RunE: execute,
	}
)

// loadConfigFlag reads the file named by --config in place of the default.
func loadConfigFlag(cmd *cobra.Command) error {
	if !cmd.Flags().Changed("config") {
		return nil
	}
	viper.SetConfigFile(utils.ExpandPath(configFile))
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("unable to read config %s: %w", configFile, err)
	}
	log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
	return nil
}

// documentFromArg resolves the document to read. Without an argument, or with
// a directory, it looks for a README.
func documentFromArg(arg string) (string, error) {
	if arg == "" {
		arg = "."
	}
	arg = utils.ExpandPath(arg)

	st, err := os.Stat(arg)
	if err != nil {
		return "", fmt.Errorf("unable to open file: %w", err)
	}
	if st.IsDir() {
		for _, name := range readmeNames {
			p := filepath.Join(arg, name)
			if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
				return filepath.Abs(p)
			}
		}
		return "", errors.New("missing markdown source")
	}

	if !utils.IsMarkdownFile(arg) {
		return "", fmt.Errorf("%s is not a markdown file", arg)
	}
	return filepath.Abs(arg)
}

func execute(cmd *cobra.Command, args []string) error {
	var arg string
	if len(args) > 0 {
		arg = args[0]
	}
	path, err := documentFromArg(arg)
	if err != nil {
		return err
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("the reader needs a terminal; try %s", keyword("readaloud chunks "+path))
	}

	cfg, err := ui.LoadConfig()
	if err != nil {
		return err
	}
	cfg.Path = path
	cfg.Selection = viper.GetBool("selection")
	cfg.EnableMouse = cfg.EnableMouse || viper.GetBool("mouse")

	return runReader(cmd, cfg)
}

func runReader(cmd *cobra.Command, cfg ui.Config) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	doc := page.NewDocument(readerTab, cfg.Path, page.WithSelection(cfg.Selection))

	a, err := newApp(ctx, tts.WithTextSource(doc), tts.WithHighlighter(doc))
	if err != nil {
		return err
	}
	defer a.Close()

	runCtx, stop := a.start(ctx)
	defer stop()

	if err := a.applyFlags(runCtx, cmd); err != nil {
		return err
	}

	if _, err := ui.NewProgram(runCtx, cfg, a.ctrl, doc, a.voices(runCtx)).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	flags.StringP("engine", "e", "", "speech engine ("+strings.Join(engineNames(), ", ")+")")
	flags.StringP("voice", "v", "", "voice id or fuzzy name")
	flags.Float64P("rate", "r", tts.DefaultRate, "speaking rate (0.1 to 10)")
	flags.Bool("ephemeral", false, "keep rate and voice in memory only")
	rootCmd.Flags().BoolP("selection", "s", false, "read the clipboard selection before the document")
	rootCmd.Flags().BoolP("mouse", "m", false, "enable mouse wheel")
	_ = rootCmd.Flags().MarkHidden("mouse")

	// Config bindings
	_ = viper.BindPFlag("engine", flags.Lookup("engine"))
	_ = viper.BindPFlag("voice", flags.Lookup("voice"))
	_ = viper.BindPFlag("rate", flags.Lookup("rate"))
	_ = viper.BindPFlag("ephemeral", flags.Lookup("ephemeral"))
	_ = viper.BindPFlag("selection", rootCmd.Flags().Lookup("selection"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))

	tts.SetDefaults(viper.GetViper())
	bus.SetDefaults(viper.GetViper())
	viper.SetDefault("selection", false)
	viper.SetDefault("mouse", false)
	viper.SetDefault("metrics.listen", "")
	viper.SetDefault("hotkey", "ctrl+shift+space")

	rootCmd.AddCommand(
		serveCmd,
		mcpCmd,
		sendCmd,
		voicesCmd,
		chunksCmd,
		cacheCmd,
		configCmd,
		manCmd,
	)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, appName)
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, appName)}, dirs...)
	}

	if c := os.Getenv("READALOUD_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName(appName)
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix(appName)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	configFile = filepath.Join(dirs[0], appName+".yml")
}
