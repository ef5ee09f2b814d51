package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aibridge-dev/aibridge/internal/config"
	"github.com/aibridge-dev/aibridge/internal/storage"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List persisted sessions",
	Long:  `List the session records persisted by previous aibridge runs.`,
	RunE:  runSessions,
}

func runSessions(cmd *cobra.Command, args []string) error {
	paths := config.GetPaths()
	store := storage.New(paths.StoragePath())

	sessions, err := store.ListSessions(context.Background())
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions.")
		return nil
	}

	for _, sess := range sessions {
		last := "never"
		if sess.Time.LastActive != 0 {
			last = time.UnixMilli(sess.Time.LastActive).Local().Format(time.RFC3339)
		}
		fmt.Printf("%s  tool=%s  model=%s  last-active=%s\n", sess.ID, sess.Tool, sess.Model, last)
	}
	return nil
}
