// Command fieldsync is the thin presentation layer over the offline-first
// sync core: it wires the SQLite store, the CRM gateway and the services
// together and exposes every core operation as a subcommand.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fieldsync/config"
	"fieldsync/internal/adapters/crm"
	"fieldsync/internal/domain"
	"fieldsync/internal/repository/sqlite"
	"fieldsync/internal/services"
)

type app struct {
	cfg          *config.Config
	store        *sqlite.Store
	eventRepo    domain.EventRepository
	attendeeRepo domain.AttendeeRepository
	importer     domain.Importer
	coordinator  domain.Coordinator
	tokens       domain.TokenProvider
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := config.NewLogger()

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	eventRepo := sqlite.NewEventRepository(store.DB())
	attendeeRepo := sqlite.NewAttendeeRepository(store.DB())
	outboxRepo := sqlite.NewOutboxRepository(store.DB())
	gateway := crm.NewClient(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.CRMBaseURL, cfg.CRMIdentityURL)

	return &app{
		cfg:          cfg,
		store:        store,
		eventRepo:    eventRepo,
		attendeeRepo: attendeeRepo,
		importer:     services.NewImporter(eventRepo, attendeeRepo, gateway, cfg.HTTPTimeout, logger),
		coordinator:  services.NewCoordinator(attendeeRepo, outboxRepo, gateway, cfg.HTTPTimeout, logger),
		tokens:       services.NewTokenProvider(gateway, cfg.CRMClientID, cfg.CRMClientSecret),
	}, nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
}

func (a *app) token(ctx context.Context) (string, error) {
	if err := a.cfg.ValidateRemote(); err != nil {
		return "", err
	}
	return a.tokens.Token(ctx)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fieldsync",
		Short:         "Offline-capable event check-in client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newImportCommand(),
		newListCommand(),
		newDeleteCommand(),
		newAddCommand(),
		newCheckinCommand(),
		newSyncCommand(),
		newPendingCommand(),
		newLogoutCommand(),
	)
	return cmd
}

func newImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <event-id>",
		Short: "Pull an event and its members from the CRM into the local store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid event id %q", args[0])
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			token, err := a.token(cmd.Context())
			if err != nil {
				return err
			}
			event, err := a.importer.ImportEvent(cmd.Context(), eventID, token)
			if err != nil {
				return err
			}
			fmt.Printf("imported event %d %q with %d attendees\n", event.ID, event.Name, len(event.Attendees))
			return nil
		},
	}
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List locally stored events with their attendees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			events, err := a.eventRepo.List(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(events)
		},
	}
}

func newDeleteCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <event-id>",
		Short: "Delete an event and all its attendees from the local store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid event id %q", args[0])
			}
			if !yes && !confirm(fmt.Sprintf("Remove event %d and all its attendees?", eventID)) {
				return nil
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.eventRepo.Delete(cmd.Context(), eventID); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					fmt.Printf("event %d had nothing to remove\n", eventID)
					return nil
				}
				return err
			}
			fmt.Printf("event %d removed\n", eventID)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newAddCommand() *cobra.Command {
	var (
		eventID      int
		leadID       int
		form         domain.AttendeeForm
		unsubscribed bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create or update an attendee (requires connectivity)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			token, err := a.token(cmd.Context())
			if err != nil {
				return err
			}

			form.UserID = leadID
			form.Unsubscribed = unsubscribed
			if leadID != 0 {
				existing, err := a.attendeeRepo.GetByLead(cmd.Context(), eventID, leadID)
				if err != nil {
					return err
				}
				form.ProgressionStatus = existing.ProgressionStatus
				form.PendingSync = existing.PendingSync
			}

			workspace := a.cfg.CRMPartition
			result, err := a.coordinator.CreateOrUpdateAttendee(cmd.Context(), eventID, &form, token, workspace)
			if err != nil {
				return err
			}
			switch {
			case result.Created && result.StatusConfirmed:
				fmt.Printf("attendee created with lead id %d and registered\n", result.Attendee.UserID)
			case result.Created:
				fmt.Printf("attendee created with lead id %d; registration status NOT confirmed remotely\n", result.Attendee.UserID)
			default:
				fmt.Printf("attendee %d updated\n", result.Attendee.UserID)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&eventID, "event", 0, "event id (required)")
	cmd.Flags().IntVar(&leadID, "lead", 0, "lead id of an existing attendee to edit")
	cmd.Flags().StringVar(&form.FirstName, "first", "", "first name")
	cmd.Flags().StringVar(&form.LastName, "last", "", "last name")
	cmd.Flags().StringVar(&form.Email, "email", "", "email address")
	cmd.Flags().StringVar(&form.Company, "company", "", "company")
	cmd.Flags().StringVar(&form.Phone, "phone", "", "phone number")
	cmd.Flags().BoolVar(&unsubscribed, "unsubscribed", false, "marketing opt-out")
	_ = cmd.MarkFlagRequired("event")
	return cmd
}

func newCheckinCommand() *cobra.Command {
	var (
		eventID int
		leadID  int
		offline bool
	)
	cmd := &cobra.Command{
		Use:   "checkin",
		Short: "Mark an attendee as Attended, deferring confirmation when offline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			attendee, err := a.attendeeRepo.GetByLead(cmd.Context(), eventID, leadID)
			if err != nil {
				return err
			}

			token := ""
			if !offline {
				token, err = a.token(cmd.Context())
				if err != nil {
					return err
				}
			}
			if err := a.coordinator.CheckIn(cmd.Context(), attendee, eventID, token, !offline); err != nil {
				return err
			}
			if offline {
				fmt.Printf("attendee %d checked in locally; run `fieldsync sync` when back online\n", leadID)
			} else {
				fmt.Printf("attendee %d checked in\n", leadID)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&eventID, "event", 0, "event id (required)")
	cmd.Flags().IntVar(&leadID, "lead", 0, "lead id (required)")
	cmd.Flags().BoolVar(&offline, "offline", false, "record the check-in locally without calling the CRM")
	_ = cmd.MarkFlagRequired("event")
	_ = cmd.MarkFlagRequired("lead")
	return cmd
}

func newSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Replay pending check-ins against the CRM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			token, err := a.token(cmd.Context())
			if err != nil {
				return err
			}
			report, syncErr := a.coordinator.SyncPending(cmd.Context(), token)
			if report != nil {
				if err := printJSON(report); err != nil {
					return err
				}
			}
			return syncErr
		},
	}
}

func newPendingCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List attendees whose check-in is not yet confirmed remotely",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			pending, err := a.attendeeRepo.ListPendingSync(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(pending)
		},
	}
}

func newLogoutCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Wipe the local store and forget the cached token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			pending, err := a.attendeeRepo.ListPendingSync(cmd.Context())
			if err != nil {
				return err
			}
			if len(pending) > 0 {
				fmt.Printf("%d check-ins are not yet synced and will be lost\n", len(pending))
			}
			if !yes && !confirm("Wipe all local data?") {
				return nil
			}
			if err := a.eventRepo.DeleteAll(cmd.Context()); err != nil {
				return err
			}
			a.tokens.Invalidate()
			fmt.Println("local data wiped")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
