package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/notifybell/internal/app"
	"github.com/nhle/notifybell/internal/credential"
	"github.com/nhle/notifybell/internal/model"
	"github.com/nhle/notifybell/internal/notify"
	"github.com/nhle/notifybell/internal/source/email"
	appsync "github.com/nhle/notifybell/internal/sync"
)

var (
	listUnread bool
	listJSON   bool
	loginToken string

	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Fetch and print notifications, newest first",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}

	readCmd = &cobra.Command{
		Use:   "read <id>",
		Short: "Mark one notification read on the backend",
		Args:  cobra.ExactArgs(1),
		RunE:  runRead,
	}

	readAllCmd = &cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification read on the backend",
		Args:  cobra.NoArgs,
		RunE:  runReadAll,
	}

	loginCmd = &cobra.Command{
		Use:   "login",
		Short: "Store the backend access token in the system keyring",
		Args:  cobra.NoArgs,
		RunE:  runLogin,
	}

	logoutCmd = &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored access token",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show connection, token and cache state",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
)

func init() {
	listCmd.Flags().BoolVar(&listUnread, "unread", false, "only unread notifications")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON instead of a table")
	loginCmd.Flags().StringVar(&loginToken, "token", "", "access token (prompted when empty)")
}

// runTUI starts the interactive bell.
func runTUI(*cobra.Command, []string) error {
	e, err := newEnv(true)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, cancel := e.requestContext()
	if err := e.coordinator.Restore(ctx); err != nil {
		e.logger.Warn("restore failed", zap.Error(err))
	}
	cancel()

	poller := appsync.NewPoller(
		e.coordinator,
		time.Duration(e.cfg.Sync.PollIntervalSec)*time.Second,
	)
	defer poller.Stop()
	var cursors email.CursorStore
	if e.cache != nil {
		cursors = e.cache
	}
	n := app.RegisterSources(poller, *e.cfg, e.creds, cursors, e.logger)
	e.logger.Info("starting",
		zap.String("backend", e.cfg.Backend.BaseURL),
		zap.Int("push_sources", n),
	)

	m := app.New(app.Options{
		Config:      *e.cfg,
		ConfigPath:  configPath,
		Coordinator: e.coordinator,
		Poller:      poller,
		Credentials: e.creds,
		Logger:      e.logger,
	})
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}

func runList(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(true)
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.requireBaseURL(); err != nil {
		return err
	}

	ctx, cancel := e.requestContext()
	defer cancel()
	if err := e.coordinator.FetchAll(ctx); err != nil {
		return err
	}

	snap := e.coordinator.Store().Snapshot()
	items := notify.NewestFirst(snap.Items)
	if listUnread {
		items = notify.Unread(items)
	}

	out := cmd.OutOrStdout()
	if listJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			UnreadCount   int                  `json:"unread_count"`
			Notifications []model.Notification `json:"notifications"`
		}{snap.UnreadCount, items})
	}

	w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	fmt.Fprintf(w, "\tID\tTYPE\tTITLE\tCREATED\n")
	for _, n := range items {
		mark := " "
		if !n.Read {
			mark = "●"
		}
		created := ""
		if t, ok := n.CreatedTime(); ok {
			created = t.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", mark, n.ID, n.Type, n.Title, created)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d unread\n", snap.UnreadCount)
	return nil
}

func runRead(cmd *cobra.Command, args []string) error {
	e, err := newEnv(true)
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.requireBaseURL(); err != nil {
		return err
	}

	id := model.ParseID(strings.TrimSpace(args[0]))
	if !id.IsServer() {
		return fmt.Errorf("%q is a local notification id; the backend does not know it", id)
	}

	ctx, cancel := e.requestContext()
	defer cancel()
	if err := e.coordinator.Restore(ctx); err != nil {
		e.logger.Warn("restore failed", zap.Error(err))
	}
	if err := e.coordinator.MarkOneRead(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "marked %s read\n", id)
	return nil
}

func runReadAll(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(true)
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.requireBaseURL(); err != nil {
		return err
	}

	ctx, cancel := e.requestContext()
	defer cancel()
	if err := e.coordinator.Restore(ctx); err != nil {
		e.logger.Warn("restore failed", zap.Error(err))
	}
	if err := e.coordinator.MarkAllRead(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "marked all notifications read")
	return nil
}

func runLogin(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(false)
	if err != nil {
		return err
	}
	defer e.Close()

	token := strings.TrimSpace(loginToken)
	if token == "" {
		form := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Access Token").
				Description("Bearer token for " + e.cfg.Backend.BaseURL).
				EchoMode(huh.EchoModePassword).
				Value(&token),
		))
		if err := form.Run(); err != nil {
			return err
		}
		token = strings.TrimSpace(token)
	}
	if token == "" {
		return errors.New("no token given")
	}

	if err := e.creds.Set(e.cfg.Backend.TokenKey, token); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "token saved")
	if exp, err := credential.TokenExpiry(token); err == nil {
		if credential.Expired(token, time.Now()) {
			fmt.Fprintf(out, "warning: token expired at %s\n", exp.Local().Format(time.RFC1123))
		} else {
			fmt.Fprintf(out, "expires %s\n", exp.Local().Format(time.RFC1123))
		}
	}
	return nil
}

func runLogout(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(false)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.creds.Delete(e.cfg.Backend.TokenKey); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "token removed")
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	e, err := newEnv(true)
	if err != nil {
		return err
	}
	defer e.Close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintf(w, "config\t%s\n", configPath)
	fmt.Fprintf(w, "backend\t%s\n", e.cfg.Backend.BaseURL)
	fmt.Fprintf(w, "token\t%s\n", tokenState(e.creds, e.cfg.Backend.TokenKey))

	inbox := "disabled"
	if e.cfg.Inbox.Enabled {
		inbox = fmt.Sprintf("%s@%s:%s/%s", e.cfg.Inbox.Username, e.cfg.Inbox.Host, e.cfg.Inbox.Port, e.cfg.Inbox.Mailbox)
	}
	fmt.Fprintf(w, "inbox\t%s\n", inbox)

	switch {
	case e.cache == nil:
		fmt.Fprintf(w, "cache\tdisabled\n")
	default:
		ctx, cancel := e.requestContext()
		defer cancel()
		info, err := e.cache.Info(ctx)
		if err != nil {
			fmt.Fprintf(w, "cache\terror: %v\n", err)
			break
		}
		saved := "never"
		if !info.SavedAt.IsZero() {
			saved = info.SavedAt.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "cache\t%s (%d items, %d unread, saved %s)\n",
			e.cfg.Sync.CachePath, info.Items, info.Unread, saved)
	}
	return w.Flush()
}

func tokenState(creds *credential.Store, key string) string {
	tok, err := creds.Get(key)
	switch {
	case errors.Is(err, credential.ErrNotFound):
		return "not stored (run notifybell login)"
	case err != nil:
		return fmt.Sprintf("keyring error: %v", err)
	}

	exp, err := credential.TokenExpiry(tok)
	if err != nil {
		return "stored (no expiry)"
	}
	if credential.Expired(tok, time.Now()) {
		return "expired " + exp.Local().Format(time.RFC1123)
	}
	return "valid until " + exp.Local().Format(time.RFC1123)
}
