package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"beanhealth/internal/client"
	"beanhealth/internal/form"
	"beanhealth/internal/logging"
)

var (
	errBlocked   = errors.New("demo request not sent: required fields missing")
	errSubmitted = errors.New("demo request failed")
)

type submitOptions struct {
	name       string
	email      string
	lookingFor string
}

func newSubmitCommand(root *rootOptions) *cobra.Command {
	opts := &submitOptions{}

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a demo request",
		Example: `  beanhealth-demo submit --name "Dr. John Doe" --email john@hospital.com \
    --looking-for "Need a demo for nephrology dept"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			c := client.New(cfg.BackendURL,
				client.WithTimeout(cfg.RequestTimeout),
				client.WithLogger(logging.Named("client")),
			)
			return runSubmit(cmd, c, opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "your name")
	cmd.Flags().StringVar(&opts.email, "email", "", "your e-mail address")
	cmd.Flags().StringVar(&opts.lookingFor, "looking-for", "", "what you are looking for")
	return cmd
}

func runSubmit(cmd *cobra.Command, submitter form.Submitter, opts *submitOptions) error {
	out := cmd.OutOrStdout()

	ctrl := form.New(submitter,
		form.WithLogger(logging.Named("form")),
		form.WithObserver(func(e form.Event) {
			if n, ok := e.(form.EventNotification); ok {
				printNotification(out, n.Notification)
			}
		}),
	)
	defer ctrl.Close()

	_ = ctrl.UpdateField(form.FieldName, opts.name)
	_ = ctrl.UpdateField(form.FieldEmail, opts.email)
	_ = ctrl.UpdateField(form.FieldLookingFor, opts.lookingFor)

	result := ctrl.Submit(cmd.Context())
	switch result.Outcome {
	case form.OutcomeSucceeded:
		if r := result.Record; r != nil && r.ID != "" {
			fmt.Fprintf(out, "  Reference: %s\n", r.ID)
			if !r.CreatedAt.IsZero() {
				fmt.Fprintf(out, "  Received:  %s\n", r.CreatedAt.UTC().Format("2006-01-02 15:04:05 MST"))
			}
		}
		return nil
	case form.OutcomeBlocked:
		flags := make([]string, len(result.Missing))
		for i, f := range result.Missing {
			flags[i] = "--" + flagFor(f)
		}
		fmt.Fprintf(out, "✗ Please fill in all fields\n  Missing: %s\n", strings.Join(flags, ", "))
		return errBlocked
	default:
		return errSubmitted
	}
}

func printNotification(w io.Writer, n form.Notification) {
	mark := "✓"
	if n.Kind == form.NotificationError {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s\n  %s\n", mark, n.Title, n.Description)
}

func flagFor(f form.Field) string {
	if f == form.FieldLookingFor {
		return "looking-for"
	}
	return string(f)
}
