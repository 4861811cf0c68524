package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kalambet/pfbot/internal/api"
	"github.com/kalambet/pfbot/internal/config"
	"github.com/kalambet/pfbot/internal/pipeline"
	"github.com/kalambet/pfbot/internal/profile"
	"github.com/kalambet/pfbot/internal/reference"
	"github.com/kalambet/pfbot/internal/session"
	"github.com/kalambet/pfbot/internal/storage"
)

const chatWelcome = "Welcome to the PF Bot! Type 'quit' to exit or 'clear' to clear conversation history."

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := buildRuntime(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		return runChat(ctx, rt.advisor, os.Stdin, os.Stdout)
	},
}

// runChat reads utterances line by line until "quit" or end of input.
// "clear" forgets both the profile and the history.
func runChat(ctx context.Context, advisor *pipeline.Advisor, in io.Reader, out io.Writer) error {
	s := session.New()
	fmt.Fprintln(out, chatWelcome)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nYou: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(line) {
		case "quit":
			return nil
		case "clear":
			s.Reset()
			fmt.Fprintln(out, "Conversation history cleared.")
			continue
		case "":
			continue
		}

		reply := advisor.Respond(ctx, s, line)
		printBot(out, reply.Text)

		if ctx.Err() != nil {
			return nil
		}
	}
}

// --- advise ---

var adviseCmd = &cobra.Command{
	Use:   "advise",
	Short: "Get personalized advice from questionnaire answers",
	Long: `Get personalized PF withdrawal advice in one shot.

Examples:
  pfbot advise --contribution "Yes" --years "6 years" --purpose "Medical emergency"
  pfbot advise --purpose "Home loan repayment" --previous "No"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		answers := answersFromFlags(cmd)
		if answers.IsEmpty() {
			return fmt.Errorf("at least one of --contribution, --years, --purpose or --previous is required")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		rt, err := buildRuntime(ctx, cfg)
		if err != nil {
			return err
		}
		defer rt.Close()

		reply := rt.advisor.Advise(ctx, session.New(), answers)
		printBot(os.Stdout, reply.Text)
		return nil
	},
}

func answersFromFlags(cmd *cobra.Command) profile.Answers {
	contribution, _ := cmd.Flags().GetString("contribution")
	years, _ := cmd.Flags().GetString("years")
	purpose, _ := cmd.Flags().GetString("purpose")
	previous, _ := cmd.Flags().GetString("previous")
	return profile.Answers{
		Contribution:        contribution,
		ServiceYears:        years,
		WithdrawalType:      purpose,
		PreviousWithdrawals: previous,
	}
}

func init() {
	adviseCmd.Flags().String("contribution", "", "are you currently contributing to PF?")
	adviseCmd.Flags().String("years", "", "how long you have been contributing (e.g. 5 years)")
	adviseCmd.Flags().String("purpose", "", "what the withdrawal is for")
	adviseCmd.Flags().String("previous", "", "have you withdrawn PF earlier?")
}

// --- reference ---

var referenceCmd = &cobra.Command{
	Use:   "reference [title]",
	Short: "List or show PF withdrawal quick-reference cards",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showReference(cmd.OutOrStdout(), strings.Join(args, " "))
	},
}

func showReference(w io.Writer, title string) error {
	if title == "" {
		for _, t := range reference.Titles() {
			fmt.Fprintf(w, "  %s\n", t)
		}
		return nil
	}
	card, ok := reference.Lookup(title)
	if !ok {
		return fmt.Errorf("no reference card titled %q (run 'pfbot reference' to list them)", title)
	}
	fmt.Fprintln(w, card.Body)
	return nil
}

// --- interactions ---

var interactionsCmd = &cobra.Command{
	Use:   "interactions",
	Short: "Inspect recorded interactions on a running server",
}

var interactionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent interactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		sessionID, _ := cmd.Flags().GetString("session")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/interactions?limit=%d", limit)
		if sessionID != "" {
			path += "&session_id=" + sessionID
		}
		var page api.InteractionPage
		if err := client.get(cmd.Context(), path, &page); err != nil {
			return err
		}

		if len(page.Interactions) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No interactions found.")
			return nil
		}

		for _, ix := range page.Interactions {
			input := ix.UserInput
			if len(input) > 80 {
				input = input[:80] + "..."
			}
			status := ix.Status
			if status == storage.StatusFailed {
				status = colorize(colorRed, status)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %-6s  %s  %s\n",
				colorize(colorCyan, shortID(ix.ID)),
				ix.CreatedAt.Format("2006-01-02 15:04:05"),
				ix.Kind,
				status,
				input,
			)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d shown\n", len(page.Interactions), page.Total)
		return nil
	},
}

var interactionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single interaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var interaction any
		if err := client.get(cmd.Context(), "/interactions/"+args[0], &interaction); err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(interaction)
	},
}

var interactionsFeedbackCmd = &cobra.Command{
	Use:   "feedback <id> <up|down|neutral>",
	Short: "Rate an answer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, err := parseScore(args[1])
		if err != nil {
			return err
		}
		notes, _ := cmd.Flags().GetString("notes")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := api.FeedbackRequest{Score: score, Notes: notes}
		if err := client.post(cmd.Context(), "/interactions/"+args[0]+"/feedback", req, nil); err != nil {
			return err
		}

		printSuccess("Feedback saved for %s", args[0])
		return nil
	},
}

var interactionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an interaction record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if err := client.delete(cmd.Context(), "/interactions/"+args[0], nil); err != nil {
			return err
		}

		printSuccess("Deleted %s", args[0])
		return nil
	},
}

func parseScore(s string) (int, error) {
	switch strings.ToLower(s) {
	case "up", "+1", "1", "good":
		return 1, nil
	case "down", "-1", "bad":
		return -1, nil
	case "neutral", "0":
		return 0, nil
	}
	return 0, fmt.Errorf("invalid rating %q: use up, down or neutral", s)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	interactionsListCmd.Flags().Int("limit", 20, "maximum number of interactions to list")
	interactionsListCmd.Flags().String("session", "", "only show interactions from this session")
	interactionsFeedbackCmd.Flags().String("notes", "", "optional comment")

	interactionsCmd.AddCommand(interactionsListCmd)
	interactionsCmd.AddCommand(interactionsShowCmd)
	interactionsCmd.AddCommand(interactionsFeedbackCmd)
	interactionsCmd.AddCommand(interactionsDeleteCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadLocal()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return fmt.Errorf("%w (valid keys: %s)", err, strings.Join(config.ValidKeys(), ", "))
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
