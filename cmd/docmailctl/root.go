package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/shandysiswandi/docmailer/internal/app"
	"github.com/shandysiswandi/docmailer/internal/pkg/config"
	"github.com/shandysiswandi/docmailer/internal/pkg/docmail"
	"github.com/shandysiswandi/docmailer/internal/pkg/instrument"
	"github.com/spf13/cobra"
)

type cli struct {
	configPath string
	verbose    bool

	cfg    config.Config
	client *docmail.Client
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "docmailctl",
		Short:         "Send and inspect Docmail mailings from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfg != nil {
				return c.cfg.Close()
			}
			return nil
		},
	}

	defaultPath := os.Getenv("CONFIG_PATH")
	if defaultPath == "" {
		defaultPath = "./config/config.yaml"
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", defaultPath, "path to the config file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log docmail calls to stderr")

	root.AddCommand(
		c.newBalanceCmd(),
		c.newSendCmd(),
		c.newStatusCmd(),
		c.newProofCmd(),
		c.newDeleteCmd(),
		c.newTokenCmd(),
	)

	return root
}

func (c *cli) setup() error {
	_ = godotenv.Load()

	cfg, err := config.NewViper(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	level := "warn"
	if c.verbose {
		level = "debug"
	}
	slog.SetDefault(instrument.NewLogger(os.Stderr, "docmailctl", instrument.LogConfig{
		Level:       level,
		Format:      "text",
		MaskFields:  cfg.GetArray("instrument.log.mask_fields"),
		MaxValueLen: cfg.GetInt("instrument.log.max_value_len"),
	}))

	dcfg := app.LoadDocmailConfig(cfg)
	c.client = docmail.New(dcfg, docmail.NewSOAP(dcfg, nil))

	return nil
}
