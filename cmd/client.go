package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/arthurdotwork/lobby/internal/adapters/primary/session"
	"github.com/arthurdotwork/lobby/internal/domain"
	"github.com/arthurdotwork/lobby/internal/infrastructure/log"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var errQuit = errors.New("quit")

const usage = `commands:
  login <user-id>      start a session
  logout               end the session
  connect | disconnect
  online               list the other online users
  pending              list invitations waiting for you
  invite <user-id>     invite a user
  accept <inv-id>      accept an invitation
  decline <inv-id>     decline an invitation
  cancel <inv-id>      cancel an invitation you sent
  status               show connection state and readiness
  quit`

// Client runs an interactive lobby session on the terminal. Logs go to
// stderr so they do not interleave with the prompt.
func Client(ctx context.Context, c *cobra.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("loadConfig: %w", err)
	}

	if err := log.ConfigWriter(ctx, os.Stderr, cfg.LogLevel); err != nil {
		return fmt.Errorf("log.ConfigWriter: %w", err)
	}

	holder := session.NewHolder()

	lobby, release, err := newLobby(cfg, holder)
	if err != nil {
		return fmt.Errorf("newLobby: %w", err)
	}
	defer release()

	out := c.OutOrStdout()

	return serve(ctx, lobby,
		func(ctx context.Context) error {
			printStates(ctx, out, lobby)
			return nil
		},
		func(ctx context.Context) error {
			return prompt(ctx, out, lobby, holder)
		},
	)
}

func printStates(ctx context.Context, out io.Writer, lobby *domain.LobbyService) {
	for state := range lobby.WatchConnectionState(ctx) {
		fmt.Fprintf(out, "[%s]\n", state)
	}
}

func prompt(ctx context.Context, out io.Writer, lobby *domain.LobbyService, holder *session.Holder) error {
	lines := make(chan string)
	failed := make(chan error, 1)

	go func() {
		p := promptui.Prompt{Label: "lobby"}
		for {
			line, err := p.Run()
			if err != nil {
				failed <- err
				return
			}

			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(out, usage)

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-failed:
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return nil
			}

			return fmt.Errorf("prompt.Run: %w", err)
		case line := <-lines:
			err := execute(ctx, out, lobby, holder, strings.Fields(line))
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		}
	}
}

func execute(ctx context.Context, out io.Writer, lobby *domain.LobbyService, holder *session.Holder, args []string) error {
	if len(args) == 0 {
		return nil
	}

	switch args[0] {
	case "quit", "exit":
		return errQuit
	case "help":
		fmt.Fprintln(out, usage)
	case "login":
		id, err := idArg(args)
		if err != nil {
			return err
		}
		holder.Login(id)
	case "logout":
		holder.Logout()
	case "connect":
		lobby.Connect()
	case "disconnect":
		lobby.Disconnect()
	case "status":
		fmt.Fprintf(out, "state=%s ready=%t\n", lobby.ConnectionState(), lobby.Ready())
	case "online":
		for _, u := range lobby.OthersOnline() {
			fmt.Fprintf(out, "%6d  %s\n", u.ID, u.Username)
		}
	case "pending":
		for _, inv := range lobby.PendingForMe() {
			fmt.Fprintf(out, "%6d  from %s (%d)\n", inv.ID, inv.FromUser.Username, inv.FromUser.ID)
		}
	case "invite":
		id, err := idArg(args)
		if err != nil {
			return err
		}
		go report(out, "invite", lobby.SendInvitation(ctx, id))
	case "accept", "decline", "cancel":
		id, err := idArg(args)
		if err != nil {
			return err
		}
		go report(out, args[0], lobby.Reply(ctx, id, replyStatus(args[0])))
	default:
		return fmt.Errorf("unknown command %q, try help", args[0])
	}

	return nil
}

func report(out io.Writer, action string, results <-chan domain.InviteResult) {
	res := <-results
	if res.Err != nil {
		fmt.Fprintf(out, "%s failed: %v\n", action, res.Err)
		return
	}

	fmt.Fprintf(out, "%s ok: invitation %d is %s\n", action, res.Invitation.ID, res.Invitation.Status)
}

func replyStatus(action string) domain.InvitationStatus {
	switch action {
	case "accept":
		return domain.InvitationAccepted
	case "decline":
		return domain.InvitationDeclined
	default:
		return domain.InvitationCancelled
	}
}

func idArg(args []string) (int64, error) {
	if len(args) != 2 {
		return 0, fmt.Errorf("%s takes exactly one id", args[0])
	}

	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("strconv.ParseInt: %w", err)
	}

	return id, nil
}
