package cli

import (
	"net/url"

	"github.com/spf13/cobra"
)

func newRoomsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "Browse live rooms",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List live rooms in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result RoomList
			if err := client.Get(cmd.Context(), "/api/v1/rooms", &result); err != nil {
				return err
			}
			newOutput(cmd).Print(result)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <code>",
		Short: "Show a room by invite code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Room
			if err := client.Get(cmd.Context(), "/api/v1/rooms/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}
			newOutput(cmd).Print(result)
			return nil
		},
	})

	return cmd
}
