package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/arthurdotwork/lobby/internal/domain"
)

const maxErrorBody = 4 << 10

var ErrRejected = errors.New("request rejected")

// Client talks to the lobby server's REST API. It implements both
// domain.Inviter and domain.Directory.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type inviteRequest struct {
	FromUserID int64 `json:"fromUserId"`
	ToUserID   int64 `json:"toUserId"`
}

func (c *Client) Invite(ctx context.Context, fromUserID int64, toUserID int64) (domain.Invitation, error) {
	var inv domain.Invitation
	if err := c.do(ctx, http.MethodPost, "/invitations", inviteRequest{FromUserID: fromUserID, ToUserID: toUserID}, &inv); err != nil {
		return domain.Invitation{}, err
	}

	if err := inv.Validate(); err != nil {
		return domain.Invitation{}, fmt.Errorf("invitation.Validate: %w", err)
	}

	return inv, nil
}

func (c *Client) Reply(ctx context.Context, invitationID int64, status domain.InvitationStatus) (domain.Invitation, error) {
	action, err := replyAction(status)
	if err != nil {
		return domain.Invitation{}, err
	}

	var inv domain.Invitation
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/invitations/%d/%s", invitationID, action), nil, &inv); err != nil {
		return domain.Invitation{}, err
	}

	if err := inv.Validate(); err != nil {
		return domain.Invitation{}, fmt.Errorf("invitation.Validate: %w", err)
	}

	return inv, nil
}

func (c *Client) ListOnline(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if err := c.do(ctx, http.MethodGet, "/users/online", nil, &users); err != nil {
		return nil, err
	}

	for _, u := range users {
		if err := u.Validate(); err != nil {
			return nil, fmt.Errorf("user.Validate: %w", err)
		}
	}

	return users, nil
}

func (c *Client) do(ctx context.Context, method string, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("json.Marshal: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: %s %s: %d %s", ErrRejected, method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("json.Decode: %w", err)
	}

	return nil
}

func replyAction(status domain.InvitationStatus) (string, error) {
	switch status {
	case domain.InvitationAccepted:
		return "accept", nil
	case domain.InvitationDeclined:
		return "decline", nil
	case domain.InvitationCancelled:
		return "cancel", nil
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidReply, status)
	}
}
