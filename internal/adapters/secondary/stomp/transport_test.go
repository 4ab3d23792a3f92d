package stomp_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/arthurdotwork/lobby/internal/adapters/secondary/stomp"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type broker func(ws *websocket.Conn)

func newBroker(t *testing.T, handle broker) string {
	t.Helper()

	upgrader := websocket.Upgrader{Subprotocols: []string{"v12.stomp"}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		handle(ws)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/websocket"
}

func readFrame(ws *websocket.Conn) (stomp.Frame, error) {
	_, data, err := ws.ReadMessage()
	if err != nil {
		return stomp.Frame{}, err
	}

	frames, err := stomp.Parse(data)
	if err != nil || len(frames) == 0 {
		return stomp.Frame{}, err
	}

	return frames[0], nil
}

func writeFrame(ws *websocket.Conn, f stomp.Frame) {
	_ = ws.WriteMessage(websocket.TextMessage, f.Marshal())
}

func accept(ws *websocket.Conn) bool {
	f, err := readFrame(ws)
	if err != nil || f.Command != stomp.CommandConnect {
		return false
	}

	writeFrame(ws, stomp.NewFrame(stomp.CommandConnected, "version", "1.2"))
	return true
}

func TestTransport_Dial(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	t.Run("it should negotiate STOMP 1.2", func(t *testing.T) {
		connects := make(chan stomp.Frame, 1)
		url := newBroker(t, func(ws *websocket.Conn) {
			f, err := readFrame(ws)
			if err != nil {
				return
			}
			connects <- f
			writeFrame(ws, stomp.NewFrame(stomp.CommandConnected, "version", "1.2"))
			_, _ = readFrame(ws)
		})

		conn, err := stomp.NewTransport(url, nil).Dial(ctx)
		require.NoError(t, err)
		defer conn.Close()

		connect := <-connects
		require.Equal(t, stomp.CommandConnect, connect.Command)
		version, _ := connect.Get("accept-version")
		require.Equal(t, "1.2", version)
		host, _ := connect.Get("host")
		require.Equal(t, "127.0.0.1", host)
	})

	t.Run("it should fail when the broker refuses the session", func(t *testing.T) {
		url := newBroker(t, func(ws *websocket.Conn) {
			if _, err := readFrame(ws); err != nil {
				return
			}
			writeFrame(ws, stomp.NewFrame(stomp.CommandError, "message", "bad credentials"))
		})

		_, err := stomp.NewTransport(url, nil).Dial(ctx)
		require.ErrorIs(t, err, stomp.ErrServerError)
		require.ErrorContains(t, err, "bad credentials")
	})

	t.Run("it should fail when nothing listens", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		_, err := stomp.NewTransport("ws"+strings.TrimPrefix(srv.URL, "http"), nil).Dial(ctx)
		require.Error(t, err)
	})
}

func TestConn(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	t.Run("it should route messages by subscription and send frames", func(t *testing.T) {
		sent := make(chan stomp.Frame, 1)
		url := newBroker(t, func(ws *websocket.Conn) {
			if !accept(ws) {
				return
			}

			sub, err := readFrame(ws)
			if err != nil {
				return
			}
			id, _ := sub.Get("id")

			_ = ws.WriteMessage(websocket.TextMessage, []byte("\n"))
			msg := stomp.NewFrame(stomp.CommandMessage,
				"subscription", id,
				"destination", "/user/queue/invitations",
				"message-id", "1",
			)
			msg.Body = []byte(`{"id":1}`)
			writeFrame(ws, msg)

			f, err := readFrame(ws)
			if err != nil {
				return
			}
			sent <- f

			_, _ = readFrame(ws)
		})

		conn, err := stomp.NewTransport(url, nil).Dial(ctx)
		require.NoError(t, err)
		defer conn.Close()

		require.NoError(t, conn.Subscribe(ctx, "/user/5/queue/invitations"))

		frame, err := conn.Receive(ctx)
		require.NoError(t, err)
		require.Equal(t, "/user/5/queue/invitations", frame.Destination)
		require.JSONEq(t, `{"id":1}`, string(frame.Body))

		require.NoError(t, conn.Send(ctx, "/app/user.connect", []byte("{}")))

		f := <-sent
		require.Equal(t, stomp.CommandSend, f.Command)
		destination, _ := f.Get("destination")
		require.Equal(t, "/app/user.connect", destination)
		require.Equal(t, "{}", string(f.Body))
	})

	t.Run("it should report a drop when the broker goes away", func(t *testing.T) {
		url := newBroker(t, func(ws *websocket.Conn) {
			accept(ws)
		})

		conn, err := stomp.NewTransport(url, nil).Dial(ctx)
		require.NoError(t, err)
		defer conn.Close()

		_, err = conn.Receive(ctx)
		require.Error(t, err)
	})

	t.Run("it should end the session on an ERROR frame", func(t *testing.T) {
		url := newBroker(t, func(ws *websocket.Conn) {
			if !accept(ws) {
				return
			}
			writeFrame(ws, stomp.NewFrame(stomp.CommandError, "message", "subscription refused"))
			_, _ = readFrame(ws)
		})

		conn, err := stomp.NewTransport(url, nil).Dial(ctx)
		require.NoError(t, err)
		defer conn.Close()

		_, err = conn.Receive(ctx)
		require.ErrorIs(t, err, stomp.ErrServerError)
	})

	t.Run("it should stop receiving when the context is done", func(t *testing.T) {
		url := newBroker(t, func(ws *websocket.Conn) {
			if !accept(ws) {
				return
			}
			_, _ = readFrame(ws)
		})

		conn, err := stomp.NewTransport(url, nil).Dial(ctx)
		require.NoError(t, err)
		defer conn.Close()

		recvCtx, recvCancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer recvCancel()

		_, err = conn.Receive(recvCtx)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
