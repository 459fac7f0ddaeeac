package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"beanhealth/internal/client"
	"beanhealth/internal/form"
	"beanhealth/internal/logging"
	"beanhealth/internal/tui"
)

func newFormCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "form",
		Short: "Fill in the demo request form interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			c := client.New(cfg.BackendURL,
				client.WithTimeout(cfg.RequestTimeout),
				client.WithLogger(logging.Named("client")),
			)
			observer, events := tui.ChannelObserver(16)
			ctrl := form.New(c,
				form.WithSuccessWindow(cfg.SuccessDisplay),
				form.WithObserver(observer),
				form.WithLogger(logging.Named("form")),
			)
			defer ctrl.Close()

			model := tui.NewModel(ctrl, events, cfg.NotificationDisplay)
			_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
}
