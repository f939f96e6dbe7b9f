package main

import (
	"bufio"
	"io"

	"github.com/spf13/cobra"

	"github.com/AymaneHaj/Share-In/internal/bootstrap"
	"github.com/AymaneHaj/Share-In/internal/config"
	"github.com/AymaneHaj/Share-In/internal/observability/logging"
)

type cli struct {
	apiURL   string
	logLevel string
	jsonOut  bool

	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	app *bootstrap.App
}

// newRootCmd builds the command tree. The returned func closes the app opened by the command
// and must run even when the command fails.
func newRootCmd(in io.Reader, out, errOut io.Writer) (*cobra.Command, func()) {
	c := &cli{in: bufio.NewReader(in), out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "docctl",
		Short:         "Upload identity documents for extraction, review and confirm the results",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.open(cmd)
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&c.apiURL, "api", "", "backend base URL (overrides API_BASE_URL)")
	flags.StringVar(&c.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")
	flags.BoolVar(&c.jsonOut, "json", false, "print raw JSON")

	root.AddCommand(
		c.loginCmd(),
		c.registerCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.passwordCmd(),
		c.uploadCmd(),
		c.statusCmd(),
		c.listCmd(),
		c.schemaCmd(),
		c.adminCmd(),
		c.eventsCmd(),
	)
	return root, c.close
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
}

func (c *cli) open(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.apiURL != "" {
		cfg.APIBaseURL = c.apiURL
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(c.errOut, "docctl", cfg.LogLevel)
	app, err := bootstrap.New(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	c.app = app
	return nil
}
