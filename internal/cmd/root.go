package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/photogram/internal/config"
	"github.com/Iron-Ham/photogram/internal/errors"
	"github.com/Iron-Ham/photogram/internal/recon"
)

// app carries the state of one invocation so tests can run the command
// repeatedly without sharing flags or configuration.
type app struct {
	v        *viper.Viper
	stdout   io.Writer
	stderr   io.Writer
	exitCode int
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{v: viper.New(), stdout: stdout, stderr: stderr}
}

// Execute runs photogram with the process arguments and returns the exit code.
func Execute() int {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout, stderr)
	root := a.rootCommand()
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		return reportError(stderr, root.Name(), err)
	}
	return a.exitCode
}

// reportError prints err with a hint on where to look next and returns the
// exit code for it.
func reportError(w io.Writer, name string, err error) int {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)
	code := errors.ExitCode(err)
	switch {
	case code == errors.ExitUsage:
		_, _ = fmt.Fprintf(w, "Run '%s --help' for usage.\n", name)
	case !errors.IsUserFacing(err):
		_, _ = fmt.Fprintln(w, "Rerun with --log-level debug for details.")
	}
	return code
}

func usageError(err error) error {
	return fmt.Errorf("%w: %w", errors.ErrUsage, err)
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "photogram <inputFolder> <outputFilename>",
		Short: "Reconstruct a 3D model from a folder of photographs",
		Long: `photogram submits a folder of overlapping photographs to a photogrammetry
engine and writes the reconstructed model to outputFilename.

Progress is printed while the engine works. When processing completes the
model is also converted to an auxiliary mesh format (see export.* in the
configuration file).

Logs are written to stderr. With the default logging.level of auto they
include informational entries whenever the console is not drawing, for
example when stdout is not a terminal.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(2)(cmd, args); err != nil {
				return usageError(err)
			}
			return nil
		},
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.initConfig,
		RunE:              a.runReconstruct,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	flags := root.Flags()
	flags.StringP("detail", "d", "", "model detail: "+strings.Join(recon.Names(recon.Details()), "|"))
	flags.StringP("sampleOrdering", "o", "", "sample ordering: "+strings.Join(recon.Names(recon.SampleOrderings()), "|"))
	flags.StringP("featureSensitivity", "f", "", "feature sensitivity: "+strings.Join(recon.Names(recon.FeatureSensitivities()), "|"))

	pflags := root.PersistentFlags()
	pflags.StringP("config", "c", "", "config file (default is "+config.ConfigFile()+")")
	pflags.String("engine", "", "reconstruction engine: "+strings.Join(config.ValidEngines(), "|"))
	pflags.String("log-level", "", "log level: "+strings.Join(config.ValidLogLevels(), "|"))
	_ = a.v.BindPFlag("engine.name", pflags.Lookup("engine"))
	_ = a.v.BindPFlag("logging.level", pflags.Lookup("log-level"))

	return root
}

func (a *app) initConfig(cmd *cobra.Command, _ []string) error {
	// Set defaults first so they're available even without a config file
	config.RegisterDefaults(a.v)

	cfgFile, _ := cmd.Flags().GetString("config")
	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
	} else {
		a.v.SetConfigName("config")
		a.v.SetConfigType("yaml")
		a.v.AddConfigPath(config.ConfigDir())
		a.v.AddConfigPath(".")
	}

	// PHOTOGRAM_EXPORT_FORMAT for export.format
	a.v.SetEnvPrefix("PHOTOGRAM")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

// flagValue returns the flag's value, or nil when it was not given. An
// explicitly empty value is kept so that it fails validation.
func flagValue(flags *pflag.FlagSet, name string) *string {
	f := flags.Lookup(name)
	if f == nil || !f.Changed {
		return nil
	}
	v := f.Value.String()
	return &v
}
