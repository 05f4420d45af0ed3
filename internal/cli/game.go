package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/numduel/internal/ws"
)

func newCreateCmd() *cobra.Command {
	var digits int

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a room and play",
		Long: `Create a new room, print its code, and wait for an opponent.
The game plays out interactively once they join.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			conn, err := client.Connect()
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()

			if err := conn.Send(ws.EventCreateRoom, ws.CreateRoomPayload{
				PlayerName:  name,
				DigitLength: digits,
			}); err != nil {
				return err
			}

			sess := newSession(conn, name)
			sess.digits = digits
			return sess.run()
		},
	}

	cmd.Flags().IntVar(&digits, "digits", 4, "Secret code length (3-7)")

	return cmd
}

func newJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <room-code> <name>",
		Short: "Join an existing room and play",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			roomID, name := args[0], args[1]

			conn, err := client.Connect()
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()

			if err := conn.Send(ws.EventJoinRoom, ws.JoinRoomPayload{
				RoomID:     roomID,
				PlayerName: name,
			}); err != nil {
				return err
			}

			sess := newSession(conn, name)
			return sess.run()
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <room-code>",
		Short: "Show a room's current state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var room Room
			if err := client.Get("/api/v1/rooms/"+args[0], &room); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(room)
			return nil
		},
	}
}
