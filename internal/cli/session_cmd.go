package cli

import (
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/studyroom/internal/protocol"
)

func newCreateCmd() *cobra.Command {
	var drive bool

	cmd := &cobra.Command{
		Use:   "create <room-name>",
		Short: "Create a room and start an interactive session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Drive = drive
			initial := &command{protocol.EventRoomCreate, protocol.RoomCreate{RoomName: strings.Join(args, " ")}}
			return runSession(cmd, initial)
		},
	}

	cmd.Flags().BoolVar(&drive, "drive", false, "Count down locally and report ticks while driving the timer")
	return cmd
}

func newJoinCmd() *cobra.Command {
	var drive bool

	cmd := &cobra.Command{
		Use:   "join <code>",
		Short: "Join a room by invite code and start an interactive session",
		Long: `Join a room and start an interactive session.

` + sessionHelp + `

Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Drive = drive
			initial := &command{protocol.EventRoomJoin, protocol.RoomJoin{InviteCode: args[0]}}
			return runSession(cmd, initial)
		},
	}

	cmd.Flags().BoolVar(&drive, "drive", false, "Count down locally and report ticks while driving the timer")
	return cmd
}

func runSession(cmd *cobra.Command, initial *command) error {
	userID, err := cfg.LoadUserID()
	if err != nil {
		return err
	}

	// Set up cancellation
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := client.Dial(ctx)
	if err != nil {
		return err
	}

	session := NewSession(conn, newOutput(cmd), SessionOptions{
		Name:    cfg.Name,
		UserID:  userID,
		Initial: initial,
		Drive:   cfg.Drive,
		OnReady: cfg.SaveUserID,
	})
	return session.Run(ctx, cmd.InOrStdin())
}
