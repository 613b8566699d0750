package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fluxsocial/voicerelay/internal/core"
	"github.com/fluxsocial/voicerelay/internal/domain"
	"github.com/fluxsocial/voicerelay/internal/mesh"
)

var (
	flagServer string
	flagRoom   string
	flagUser   string
	flagMuted  bool
)

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Join a voice room and hold the peer mesh open",
	RunE:  runJoin,
}

func init() {
	joinCmd.Flags().StringVar(&flagServer, "server", "ws://localhost:8080", "relay server base URL")
	joinCmd.Flags().StringVar(&flagRoom, "room", "", "voice room id")
	joinCmd.Flags().StringVar(&flagUser, "user", "", "user id")
	joinCmd.Flags().BoolVar(&flagMuted, "muted", false, "join muted")
	_ = joinCmd.MarkFlagRequired("room")
	_ = joinCmd.MarkFlagRequired("user")
	rootCmd.AddCommand(joinCmd)
}

func runJoin(cmd *cobra.Command, _ []string) error {
	user, err := domain.ParseUserID(flagUser)
	if err != nil {
		return err
	}
	room := domain.RoomID(flagRoom)

	u, err := url.Parse(flagServer + "/api/ws/signal")
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("userId", string(user))
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}
	defer conn.Close()

	sig := &wsSignaler{conn: conn, room: room}
	src := mesh.NewSilentSource()
	mgr := mesh.NewManager(user, room, sig, src, mesh.DefaultConfig())
	defer mgr.Close()

	// Media first: an acquisition failure must abort the join before any
	// server-side state is created.
	if err := mgr.Start(); err != nil {
		return err
	}
	src.SetMuted(flagMuted)

	if err := sig.writeJSON(map[string]string{"type": core.MsgJoinRoom, "roomId": string(room)}); err != nil {
		return fmt.Errorf("join request: %w", err)
	}
	if flagMuted {
		if err := sig.writeJSON(map[string]any{"type": core.MsgVoiceState, "roomId": string(room), "muted": true, "deafened": false}); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		readLoop(conn, user, mgr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
		_ = sig.writeJSON(map[string]string{"type": core.MsgLeaveRoom, "roomId": string(room)})
	case <-done:
	}
	return nil
}

func readLoop(conn *websocket.Conn, self domain.UserID, mgr *mesh.Manager) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Info().Err(err).Msg("connection closed")
			return
		}
		dispatch(data, self, mgr)
	}
}

func dispatch(data []byte, self domain.UserID, mgr *mesh.Manager) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		log.Warn().Err(err).Msg("bad message")
		return
	}

	switch head.Type {
	case core.MsgCurrentMembers:
		var msg core.CurrentMembers
		if json.Unmarshal(data, &msg) != nil {
			return
		}
		for _, m := range msg.Members {
			if m.UserID != self {
				fmt.Printf("in room: %s (muted=%v deafened=%v)\n", m.UserID, m.Muted, m.Deafened)
			}
		}
	case core.MsgPeerJoined:
		var msg core.PeerJoined
		if json.Unmarshal(data, &msg) != nil {
			return
		}
		fmt.Printf("peer joined: %s\n", msg.User)
		mgr.HandlePeerJoined(msg.User)
	case core.MsgPeerLeft:
		var msg core.PeerLeft
		if json.Unmarshal(data, &msg) != nil {
			return
		}
		fmt.Printf("peer left: %s\n", msg.User)
		mgr.HandlePeerLeft(msg.User)
	case core.MsgVoiceStateChanged:
		var msg core.VoiceStateChanged
		if json.Unmarshal(data, &msg) != nil {
			return
		}
		fmt.Printf("voice state: %s muted=%v deafened=%v\n", msg.User, msg.Muted, msg.Deafened)
	case core.MsgPeerUnreachable:
		var msg core.PeerUnreachable
		if json.Unmarshal(data, &msg) != nil {
			return
		}
		mgr.HandleUnreachable(msg.Target)
	case core.MsgSignalOffer, core.MsgSignalAnswer, core.MsgSignalCandidate:
		var msg core.SignalRelayed
		if json.Unmarshal(data, &msg) != nil {
			return
		}
		switch head.Type {
		case core.MsgSignalOffer:
			mgr.HandleOffer(msg.From, msg.Payload)
		case core.MsgSignalAnswer:
			mgr.HandleAnswer(msg.From, msg.Payload)
		default:
			mgr.HandleCandidate(msg.From, msg.Payload)
		}
	case core.MsgError:
		var msg core.ErrorReply
		if json.Unmarshal(data, &msg) != nil {
			return
		}
		fmt.Printf("server error: %s\n", msg.Error)
	case core.MsgPong:
	default:
		log.Debug().Str("type", head.Type).Msg("unhandled message")
	}
}
