package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fathima-sithara/quickads/internal/auth"
)

var (
	pendingOnly bool
	operatorID  string
)

var moderateCmd = &cobra.Command{
	Use:   "moderate",
	Short: "Review and verify posts from the command line",
}

var moderateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List posts with their moderation label",
	Args:  cobra.NoArgs,
	RunE:  runModerateList,
}

var moderateAcceptCmd = &cobra.Command{
	Use:   "accept <postId>",
	Short: "Mark a post verified",
	Args:  cobra.ExactArgs(1),
	RunE:  runModerateAccept,
}

func init() {
	moderateCmd.PersistentFlags().StringVar(&operatorID, "operator", "cli", "operator id recorded on moderation events")
	moderateListCmd.Flags().BoolVar(&pendingOnly, "pending", false, "only show posts waiting for review")
	moderateCmd.AddCommand(moderateListCmd, moderateAcceptCmd)
}

// operator is the principal CLI actions run as.
func operator(role string) auth.Principal {
	return auth.Principal{UserID: operatorID, Roles: []string{role}}
}

func runModerateList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	q, err := a.mod.Queue(ctx, operator(a.mod.AdminRole()), pendingOnly)
	if err != nil {
		return fmt.Errorf("list posts: %w", err)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "POST ID\tTITLE\tBRAND\tPRICE\tSTATUS")
	for _, r := range q.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.PostID, r.Title, r.Brand, r.Price, r.Label)
	}
	return tw.Flush()
}

func runModerateAccept(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	post, err := a.mod.Accept(ctx, operator(a.mod.AdminRole()), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s is now %s\n", post.Key(), post.Label())
	return nil
}
