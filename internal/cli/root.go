package cli

import (
	"github.com/spf13/cobra"

	"beanhealth/internal/config"
	"beanhealth/internal/logging"
)

type rootOptions struct {
	cfgFile   string
	serverURL string
}

// NewRootCommand builds the demo CLI command tree
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "beanhealth-demo",
		Short: "Request a BeanHealth demo from the terminal",
		Long: `Submit a BeanHealth demo request, either in one shot with "submit" or
through the interactive form with "form".

The backend defaults to BACKEND_URL, or http://localhost:8000 when unset.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "YAML client config file")
	cmd.PersistentFlags().StringVar(&opts.serverURL, "server", "", "BeanHealth API base URL (overrides BACKEND_URL)")

	cmd.AddCommand(
		newSubmitCommand(opts),
		newFormCommand(opts),
		newVersionCommand(),
	)
	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}

// loadConfig reads the client config, applies --server and sets up logging.
func (o *rootOptions) loadConfig() (*config.ClientConfig, error) {
	cfg, err := config.LoadClient(o.cfgFile)
	if err != nil {
		return nil, err
	}
	if o.serverURL != "" {
		cfg.BackendURL = o.serverURL
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if err := logging.Initialize(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}
