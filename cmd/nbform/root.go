package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aretw0/nbform"
)

var (
	verbose bool
	cfgFile string

	// cfg merges flags, NBFORM_* environment variables and the config file.
	// It is rebuilt on every execution.
	cfg = viper.New()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nbform",
	Short: "Convert Jupyter notebooks between file form and model form",
	Long: `nbform reads .ipynb files, where cell sources and output data are stored
as lists of lines, and turns them into model form, where the same fields are
plain strings. It writes them back the same way Jupyter does.

It can also manage a directory of notebooks: create, list, export, format
and watch them.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./nbform.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringP("dir", "d", "", "notebook directory (default: nearest root holding .nbform or nbform.yaml, else the working directory)")
	flags.Bool("strict", false, "fail on source or data fields of unexpected shape")
	flags.String("pattern", "", "glob selecting notebooks in the directory (default \"**/*.ipynb\")")
	flags.Bool("read-only", false, "never write to the notebook directory")
}

func initConfig() {
	cfg = viper.New()

	flags := rootCmd.PersistentFlags()
	_ = cfg.BindPFlag("dir", flags.Lookup("dir"))
	_ = cfg.BindPFlag("strict", flags.Lookup("strict"))
	_ = cfg.BindPFlag("pattern", flags.Lookup("pattern"))
	_ = cfg.BindPFlag("read_only", flags.Lookup("read-only"))

	if cfgFile != "" {
		cfg.SetConfigFile(cfgFile)
	} else {
		cfg.SetConfigName("nbform")
		cfg.SetConfigType("yaml")
		cfg.AddConfigPath(".")
	}

	cfg.SetEnvPrefix("NBFORM")
	cfg.AutomaticEnv()

	if err := cfg.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", cfg.ConfigFileUsed())
	}
}

// options builds the library options from flags, environment and config file.
func options() []nbform.Option {
	opts := []nbform.Option{
		nbform.WithLogger(slog.Default()),
		nbform.WithStrict(cfg.GetBool("strict")),
		nbform.WithReadOnly(cfg.GetBool("read_only")),
	}
	if pattern := cfg.GetString("pattern"); pattern != "" {
		opts = append(opts, nbform.WithPattern(pattern))
	}
	if size := cfg.GetInt("event_buffer"); size > 0 {
		opts = append(opts, nbform.WithEventBuffer(size))
	}
	if d := cfg.GetDuration("debounce"); d > 0 {
		opts = append(opts, nbform.WithDebounce(d))
	}
	return opts
}

// notebookDir resolves the directory the repository commands operate on.
func notebookDir() (string, error) {
	if dir := cfg.GetString("dir"); dir != "" {
		return dir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	if root, err := nbform.FindRoot(wd); err == nil {
		return root, nil
	}
	return wd, nil
}
