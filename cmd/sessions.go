package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/foodsave-ai/foodsave/internal/client"
	"github.com/foodsave-ai/foodsave/internal/config"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Zarządzaj zapisanymi sesjami czatu",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Wypisz sesje, najnowsze na górze",
	RunE:  runSessionsList,
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Usuń sesję wraz z historią",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear <id>",
	Short: "Wyczyść historię sesji, zostawiając samą sesję",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsClear,
}

var sessionsLimit int

func init() {
	sessionsListCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "maksymalna liczba sesji")
	sessionsCmd.AddCommand(sessionsListCmd, sessionsDeleteCmd, sessionsClearCmd)
	rootCmd.AddCommand(sessionsCmd)
}

func backendClient() (*client.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return client.New(cfg.BackendURL, client.WithLogger(newLogger(false))), nil
}

func runSessionsList(cmd *cobra.Command, _ []string) error {
	c, err := backendClient()
	if err != nil {
		return err
	}

	sessions, err := c.Sessions(cmd.Context(), sessionsLimit, 0)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("Brak zapisanych sesji.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYTUŁ\tWIADOMOŚCI\tOSTATNIA AKTYWNOŚĆ")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			s.ID, s.Title, s.MessageCount, s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid session id %q: %w", args[0], err)
	}

	c, err := backendClient()
	if err != nil {
		return err
	}
	if err := c.DeleteSession(cmd.Context(), id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	fmt.Printf("Usunięto sesję %s\n", id)
	return nil
}

func runSessionsClear(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid session id %q: %w", args[0], err)
	}

	c, err := backendClient()
	if err != nil {
		return err
	}
	if err := c.ClearSession(cmd.Context(), id); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	fmt.Printf("Wyczyszczono historię sesji %s\n", id)
	return nil
}
