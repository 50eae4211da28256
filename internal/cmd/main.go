package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const releaseVersion = "0.1.0"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg := &Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("CLUEGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "cluegrid",
		Short:         "Server-authoritative realtime trivia game engine.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			if cfg.verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: CLUEGRID_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: CLUEGRID_PORT)")
	fs.StringVar(&cfg.natsURL, "nats-url", "nats://localhost:4222", "NATS server URL (env: CLUEGRID_NATS_URL)")
	fs.StringVar(&cfg.catalogURL, "catalog-url", "http://localhost:8090", "clue catalog base URL (env: CLUEGRID_CATALOG_URL)")
	fs.StringVar(&cfg.configPath, "config", "", "path to game settings yaml (env: CLUEGRID_CONFIG)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display debug output (env: CLUEGRID_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("cluegrid v{{.Version}}\n")

	return cmd
}
