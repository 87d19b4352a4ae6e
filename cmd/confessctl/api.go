package main

import (
	"fmt"
	"strconv"
	"strings"

	"secretheart/internal/client"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the confession wall, newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient()
			if err != nil {
				return err
			}
			list, err := api.ListConfessions(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Print(client.Render(client.State{View: client.FeedView{}, Confessions: list}))
			return nil
		},
	}
}

func newPostCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "post <message>",
		Short: "Post an anonymous confession.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := apiClient()
			if err != nil {
				return err
			}
			created, err := api.CreateConfession(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			cmd.Printf("posted confession #%d\n", created.ID)
			return nil
		},
	}
}

func newLikeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "like <id>",
		Short: "Like a confession.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseConfessionID(args[0])
			if err != nil {
				return err
			}
			api, err := apiClient()
			if err != nil {
				return err
			}
			liked, err := api.LikeConfession(cmd.Context(), id)
			if err != nil {
				return err
			}
			cmd.Printf("confession #%d now has %d likes\n", liked.ID, liked.Likes)
			return nil
		},
	}
}

func parseConfessionID(s string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid confession id %q", s)
	}
	return uint(id), nil
}
