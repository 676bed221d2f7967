package websocket

import (
	"errors"
	"fmt"

	"watchparty/core"
	"watchparty/handlers/auth"
	"watchparty/realtime"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

// socketConn adapts a socket.io socket to the hub's Conn interface.
type socketConn struct {
	socket *socketio.Socket
}

func (c socketConn) ID() string {
	return string(c.socket.Id())
}

func (c socketConn) Emit(event string, payload any) {
	if err := c.socket.Emit(event, payload); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"conn_id": c.ID(),
			"event":   event,
		}).Warn("Failed to emit event")
	}
}

// shortID is the public form of a connection id used in system notices.
func shortID(id string) string {
	if len(id) > 5 {
		return id[:5]
	}
	return id
}

// SetupSocketIO wires the realtime channel to the hub and chat relay. The
// channel carries join-room, play/pause/seek, chat and the hub's outbound
// notices; authentication is optional here, anonymous guests may join with
// an invite link.
func SetupSocketIO(hub *realtime.Hub, relay *realtime.ChatRelay) *socketio.Server {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(5000000)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})
	srv := socketio.NewServer(nil, opts)

	srv.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}
		conn := socketConn{socket: socket}
		me := conn.ID()

		identity := handshakeIdentity(socket)
		logrus.WithFields(logrus.Fields{
			"conn_id":  me,
			"identity": identity,
		}).Info("Connection established")

		socket.On(realtime.EventJoinRoom, func(datas ...any) {
			roomID, ok := firstString(datas)
			if !ok {
				logrus.WithField("conn_id", me).Warn("join-room without a room id")
				return
			}
			hub.Join(conn, roomID)
			relay.SystemNotice(roomID, fmt.Sprintf("User %s joined", shortID(me)))
		})

		for _, kind := range []core.EventKind{core.EventPlay, core.EventPause, core.EventSeek} {
			kind := kind
			socket.On(string(kind), func(datas ...any) {
				roomID, position, err := playbackArgs(datas)
				if err != nil {
					logrus.WithError(err).WithFields(logrus.Fields{
						"conn_id": me,
						"kind":    kind,
					}).Warn("Malformed playback event")
					return
				}
				if joined, ok := hub.RoomOf(me); !ok || joined != roomID {
					logrus.WithFields(logrus.Fields{
						"conn_id": me,
						"room_id": roomID,
					}).Warn("Playback event for a room the connection has not joined")
					return
				}
				hub.Publish(roomID, kind, position, me)
			})
		}

		socket.On(realtime.EventChat, func(datas ...any) {
			roomID, body, author, err := chatArgs(datas)
			if err != nil {
				logrus.WithError(err).WithField("conn_id", me).Warn("Malformed chat message")
				return
			}
			if author == "" || author == core.SystemAuthor {
				author = identityOrGuest(identity, me)
			}
			if _, err := relay.Send(roomID, author, body, me); err != nil {
				if errors.Is(err, core.ErrInvalidMessage) {
					logrus.WithField("conn_id", me).Debug("Rejected empty chat message")
					return
				}
				logrus.WithError(err).WithField("conn_id", me).Warn("Failed to relay chat message")
			}
		})

		socket.On("disconnecting", func(datas ...any) {
			roomID, ok := hub.RoomOf(me)
			hub.Leave(conn)
			if ok {
				relay.SystemNotice(roomID, fmt.Sprintf("User %s left", shortID(me)))
			}
		})

		socket.On("disconnect", func(datas ...any) {
			socket.RemoveAllListeners("")
			socket.Disconnect(true)
		})
	})

	return srv
}

// handshakeIdentity parses the optional bearer token the client sends in
// the socket handshake. Unauthenticated connections stay as guests.
func handshakeIdentity(socket *socketio.Socket) string {
	handshake := socket.Handshake()
	if handshake == nil {
		return ""
	}
	authData, ok := handshake.Auth.(map[string]any)
	if !ok {
		return ""
	}
	token, ok := authData["token"].(string)
	if !ok || token == "" {
		return ""
	}
	claims, err := auth.ParseJWT(token)
	if err != nil {
		logrus.WithError(err).Debug("Invalid handshake token, continuing as guest")
		return ""
	}
	return claims.Name
}

func identityOrGuest(identity, connID string) string {
	if identity != "" {
		return identity
	}
	return "Guest " + shortID(connID)
}

func firstString(datas []any) (string, bool) {
	if len(datas) == 0 {
		return "", false
	}
	s, ok := datas[0].(string)
	return s, ok && s != ""
}

// playbackArgs parses the client→hub payload {roomId, time}.
func playbackArgs(datas []any) (string, float64, error) {
	if len(datas) == 0 {
		return "", 0, fmt.Errorf("missing payload")
	}
	payload, ok := datas[0].(map[string]any)
	if !ok {
		return "", 0, fmt.Errorf("payload is not an object")
	}
	roomID, ok := payload["roomId"].(string)
	if !ok || roomID == "" {
		return "", 0, fmt.Errorf("missing roomId")
	}
	position, ok := toFloat(payload["time"])
	if !ok || position < 0 {
		return "", 0, fmt.Errorf("missing or negative time")
	}
	return roomID, position, nil
}

// chatArgs parses the client→hub payload {roomId, message, user}.
func chatArgs(datas []any) (roomID, body, author string, err error) {
	if len(datas) == 0 {
		return "", "", "", fmt.Errorf("missing payload")
	}
	payload, ok := datas[0].(map[string]any)
	if !ok {
		return "", "", "", fmt.Errorf("payload is not an object")
	}
	roomID, ok = payload["roomId"].(string)
	if !ok || roomID == "" {
		return "", "", "", fmt.Errorf("missing roomId")
	}
	body, _ = payload["message"].(string)
	author, _ = payload["user"].(string)
	return roomID, body, author, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
