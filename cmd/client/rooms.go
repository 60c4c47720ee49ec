package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nordcall/signalcore/internal/ui"
)

var roomsServerURL string

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List active rooms on a signaling server",
	RunE:  runRooms,
}

func init() {
	roomsCmd.Flags().StringVar(&roomsServerURL, "server", "http://localhost:3000", "signaling server HTTP base URL")
	rootCmd.AddCommand(roomsCmd)
}

type apiRoomSummary struct {
	RoomId           string `json:"roomId"`
	ParticipantCount int    `json:"participantCount"`
}

func runRooms(cmd *cobra.Command, args []string) error {
	base := strings.TrimSuffix(roomsServerURL, "/")
	resp, err := http.Get(base + "/api/rooms")
	if err != nil {
		return fmt.Errorf("fetch rooms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch rooms: server returned %s", resp.Status)
	}

	var summaries []apiRoomSummary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		return fmt.Errorf("decode rooms response: %w", err)
	}

	listings := make([]ui.RoomListing, 0, len(summaries))
	for _, s := range summaries {
		listings = append(listings, ui.RoomListing{RoomId: s.RoomId, ParticipantCount: s.ParticipantCount})
	}
	ui.RenderRoomsList(listings)
	return nil
}
