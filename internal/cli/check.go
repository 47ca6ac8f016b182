package cli

import (
	"fmt"

	"trivia-quiz-service/internal/config"
	"trivia-quiz-service/internal/infra/bank"
	"github.com/spf13/cobra"
)

// NewCheckCmd validates the configured question bank and exits non-zero
// on the first violation, so a broken bank never reaches participants.
func NewCheckCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the question bank and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Bank.Backend != "file" || cfg.Bank.Path == "" {
				return fmt.Errorf("check requires a file question bank (bank.backend: file)")
			}

			store := bank.NewFileStore(cfg.Bank.Path)
			questions, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}

			for i, q := range questions {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d. %s (%d options, answer %q)\n", i+1, q.Text, len(q.Options), q.Answer)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d questions OK\n", len(questions))
			return nil
		},
	}
}
