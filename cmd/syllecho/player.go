package main

import (
	"fmt"
	"os"

	"github.com/godbus/dbus/v5"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"karolbroda.com/syllecho/internal/player"
	"karolbroda.com/syllecho/internal/timeline"
)

var playerCmd = &cobra.Command{
	Use:   "player",
	Short: "mpris player utilities",
	Long:  `discover mpris-compatible music players that the viewer can follow.`,
}

var playerListCmd = &cobra.Command{
	Use:   "list",
	Short: "list available mpris players",
	Long:  `list all mpris-compatible music players currently running on the system.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bus, err := dbus.ConnectSessionBus()
		if err != nil {
			return fmt.Errorf("failed to connect to session bus: %w", err)
		}
		defer bus.Close()

		services, err := player.ListServices(bus)
		if err != nil {
			return err
		}

		if len(services) == 0 {
			fmt.Println("no mpris players found")
			fmt.Println("\ncheck if your music player is running and supports mpris")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Service", "Identity"})
		for _, service := range services {
			identity := player.Identity(bus, service)
			if identity == "" {
				identity = "-"
			}
			t.AppendRow(table.Row{service, identity})
		}
		t.Render()

		fmt.Println("\nuse --mpris-service flag to specify which player to use")

		return nil
	},
}

var playerCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "show currently playing track",
	Long:  `display information about the track the configured mpris player is playing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.MprisService == "" {
			return fmt.Errorf("no player configured, pass --mpris-service or set SYLLECHO_MPRIS_SERVICE")
		}

		bus, err := dbus.ConnectSessionBus()
		if err != nil {
			return fmt.Errorf("failed to connect to session bus: %w", err)
		}
		defer bus.Close()

		playerService, err := player.NewService(bus, player.ResolveService(cfg.MprisService))
		if err != nil {
			return fmt.Errorf("failed to connect to player: %w", err)
		}

		if err := playerService.Poll(); err != nil {
			fmt.Println("no track currently playing")
			return nil
		}

		state := playerService.GetState()
		if !state.Track.IsValid() {
			fmt.Println("no track currently playing")
			return nil
		}

		if identity := player.Identity(bus, playerService.Name()); identity != "" {
			fmt.Printf("player:   %s\n", identity)
		}
		fmt.Printf("title:    %s\n", state.Track.Title)
		fmt.Printf("artist:   %s\n", state.Track.Artist)
		if state.Track.Album != "" {
			fmt.Printf("album:    %s\n", state.Track.Album)
		}
		if state.Track.DurationMillis > 0 {
			fmt.Printf("duration: %s\n", timeline.FormatMillis(state.Track.DurationMillis))
		}
		if path, ok := state.Track.ArtworkPath(); ok {
			fmt.Printf("artwork:  %s\n", path)
		} else if state.Track.ArtworkURL != "" {
			fmt.Printf("artwork:  %s (remote, not used)\n", state.Track.ArtworkURL)
		}
		if state.Playing {
			fmt.Printf("state:    playing\n")
		} else {
			fmt.Printf("state:    paused\n")
		}
		fmt.Printf("position: %s\n", timeline.FormatMillis(state.PositionMillis))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(playerCmd)

	playerCmd.AddCommand(playerListCmd)
	playerCmd.AddCommand(playerCurrentCmd)
}
