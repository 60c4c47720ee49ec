package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nordcall/signalcore/internal/config"
	"github.com/nordcall/signalcore/internal/ids"
	"github.com/nordcall/signalcore/internal/logging"
	"github.com/nordcall/signalcore/internal/roomcode"
	"github.com/nordcall/signalcore/internal/session"
	"github.com/nordcall/signalcore/internal/ui"
	"github.com/nordcall/signalcore/internal/utils"
)

var (
	joinServerURL string
	joinSTUN      string
	joinNickname  string
	joinUserID    string
)

var joinCmd = &cobra.Command{
	Use:   "join [roomId]",
	Short: "Join a room, negotiating WebRTC peer connections with every other member",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJoin,
}

func init() {
	joinCmd.Flags().StringVar(&joinServerURL, "server", "", "signaling server WebSocket URL (overrides SIGNAL_SERVER_URL)")
	joinCmd.Flags().StringVar(&joinSTUN, "stun", "", "comma-separated STUN server URLs (overrides STUN_SERVERS)")
	joinCmd.Flags().StringVar(&joinNickname, "nickname", "", "display name shown to other participants")
	joinCmd.Flags().StringVar(&joinUserID, "user-id", "", "stable identity to use across reconnects (random if omitted)")
	rootCmd.AddCommand(joinCmd)
}

func runJoin(cmd *cobra.Command, args []string) error {
	logging.Init(slog.LevelError)

	cfg := config.LoadClient(config.ClientOptions{ServerURL: joinServerURL, STUNServer: joinSTUN})

	roomId := roomcode.Suggest()
	if len(args) == 1 {
		roomId = ids.RoomId(args[0])
	}

	userId := ids.NewUserId()
	if joinUserID != "" {
		userId = ids.UserId(joinUserID)
	}

	nickname := joinNickname
	if nickname == "" {
		nickname = string(userId)[:8]
	}

	sess := session.New(cfg, userId, nickname)
	stopSpinner := ui.RunConnectionSpinner(fmt.Sprintf("Connecting to %s...", cfg.ServerURL))
	err := sess.Join(roomId)
	stopSpinner()
	if err != nil {
		return fmt.Errorf("join room: %w", err)
	}
	defer sess.Close()

	stop := make(chan struct{})
	defer close(stop)
	go sess.RunCleanup(stop)

	ui.RenderRoomInfo(string(roomId), cfg.ServerURL)
	fmt.Println(ui.MutedStyle.Render("Type a message and press enter to chat. Ctrl+C to leave."))

	go printChat(sess)
	go printParticipants(sess)

	readStdinLoop(sess)
	return nil
}

func printChat(sess *session.Session) {
	for msg := range sess.Chat {
		fmt.Printf("%s %s: %s\n", ui.IconChat, ui.BoldStyle.Render(msg.SenderNickname), msg.Content)
	}
}

func printParticipants(sess *session.Session) {
	joinedAt := time.Now()
	for members := range sess.Participants {
		rows := make([]ui.ParticipantRow, 0, len(members))
		for _, m := range members {
			rows = append(rows, ui.ParticipantRow{
				Nickname: m.Nickname,
				UserId:   string(m.UserId),
				Tracks:   "-",
				Joined:   utils.FormatDuration(time.Since(joinedAt)),
			})
		}
		ui.RenderParticipantTable(rows)
	}
}

func readStdinLoop(sess *session.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/swap" {
			fmt.Println(ui.MutedStyle.Render("Swapping local stream, renegotiating with every peer..."))
			go sess.SwapLocalStream()
			continue
		}
		sess.SendChat(ids.NewMessageId(), line, time.Now().UnixMilli())
	}
}
