package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"

	"radrush-quiz-service/internal/config"
	"radrush-quiz-service/internal/domain"
	"radrush-quiz-service/internal/infra/memory"
	"radrush-quiz-service/internal/infra/postgres"
)

// NewImportQuestionsCmd replaces the Postgres question pool with a JSON file.
func NewImportQuestionsCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import-questions",
		Short: "Replace the stored question pool with questions from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			if file == "" {
				file = cfg.Quiz.QuestionsFile
			}

			raw, err := memory.LoadQuestionsFile(file)
			if err != nil {
				return err
			}
			questions, rejected := domain.FilterQuestions(raw)
			if len(questions) == 0 {
				return fmt.Errorf("%s: %w", file, domain.ErrEmptyPool)
			}
			for i := range questions {
				if questions[i].ID == "" {
					questions[i].ID = uuid.NewString()
				}
			}

			pool, err := pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			if err := postgres.NewQuestionPool(pool).ReplacePool(cmd.Context(), questions); err != nil {
				return err
			}
			logger.Info().Str("file", file).Int("imported", len(questions)).Int("rejected", rejected).Msg("question pool replaced")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "JSON file with questions (defaults to quiz.questions_file)")
	return cmd
}
