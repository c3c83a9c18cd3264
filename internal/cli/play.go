package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"trivia-quiz/internal/config"
	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/logger"
	"trivia-quiz/internal/normalize"
	"trivia-quiz/internal/session"
)

// NewPlayCmd builds the terminal frontend: one local session played on
// stdin/stdout.
func NewPlayCmd(configPath *string) *cobra.Command {
	var count int
	var category int
	var allowSkip bool

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd.Context(), *configPath, count, category, allowSkip)
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "questions per session (overrides config)")
	cmd.Flags().IntVar(&category, "category", 0, "topic category (overrides config)")
	cmd.Flags().BoolVar(&allowSkip, "allow-skip", false, "allow advancing past an unconfirmed question")
	return cmd
}

func runPlay(ctx context.Context, configPath string, count, category int, allowSkip bool) error {
	cfg, err := config.LoadOptional(configPath)
	if err != nil {
		return err
	}
	if count > 0 {
		cfg.Quiz.Count = count
	}
	if category > 0 {
		cfg.Quiz.Category = category
	}
	if allowSkip {
		cfg.Quiz.AllowSkip = true
	}
	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	src, cleanup, err := buildSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	quizCfg := session.Config{Count: cfg.Quiz.Count, AllowSkip: cfg.Quiz.AllowSkip}
	sess := session.New("terminal", quizCfg, src, normalize.New(nil), log)

	fmt.Println("Fetching questions...")
	_ = sess.LoadInitial(ctx)

	reader := bufio.NewReader(os.Stdin)
	for {
		view := sess.View()
		switch {
		case view.Loading:
			if view.Error != "" {
				fmt.Printf("Could not load questions: %s\n", view.Error)
			} else {
				fmt.Println("Still loading...")
			}
			if !promptYesNo(reader, "Retry?") {
				return nil
			}
			fmt.Println("Fetching questions...")
			_ = sess.Restart(ctx)
		case view.NoQuestions:
			fmt.Println("No questions available for these settings.")
			return nil
		case view.Finished:
			fmt.Printf("\nAnswered %d / %d\n", view.Score, view.Total)
			if !promptYesNo(reader, "Play again?") {
				return nil
			}
			fmt.Println("Fetching questions...")
			_ = sess.Restart(ctx)
		default:
			printQuestion(view)
			line, err := reader.ReadString('\n')
			if err != nil {
				return nil
			}
			if quit := applyIntent(ctx, sess, view, strings.TrimSpace(line)); quit {
				return nil
			}
		}
	}
}

func printQuestion(view domain.View) {
	fmt.Printf("\nQuestion %d of %d (score %d)\n%s\n\n", view.Position, view.Total, view.Score, view.Question)
	for i, opt := range view.Options {
		marker := " "
		if opt.Selected {
			marker = "*"
		}
		suffix := ""
		if opt.Correct {
			suffix = "  <- correct"
		} else if opt.Incorrect {
			suffix = "  <- your pick"
		}
		fmt.Printf("%s %c. %s%s\n", marker, 'A'+i, opt.Text, suffix)
	}
	if view.Confirmed {
		fmt.Println("\n[enter] next  [r] restart  [q] quit")
	} else {
		fmt.Println("\n[A-Z] select  [enter] confirm  [r] restart  [q] quit")
	}
}

func applyIntent(ctx context.Context, sess *session.Session, view domain.View, input string) bool {
	switch {
	case input == "q":
		return true
	case input == "r":
		fmt.Println("Fetching questions...")
		_ = sess.Restart(ctx)
	case input == "":
		if view.Confirmed {
			sess.Advance()
		} else {
			sess.ConfirmAnswer()
		}
	case len(input) == 1:
		idx := int(strings.ToUpper(input)[0] - 'A')
		if idx >= 0 && idx < len(view.Options) {
			sess.SelectAnswer(view.Options[idx].Text)
		}
	}
	return false
}

func promptYesNo(reader *bufio.Reader, question string) bool {
	fmt.Printf("%s (y/n) ", question)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
