package seed

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/blogverse/blogverse/internal/config"
	"github.com/blogverse/blogverse/internal/database"
)

func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "seed", Short: "Database seed tooling"}
	cmd.AddCommand(newApplyCommand(), newDryRunCommand(), newVerifyEmailCommand())
	return cmd
}

func newApplyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Migrate the schema and apply default seed data",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}
			report, err := database.SeedSync(db)
			if err != nil {
				return err
			}
			if report.Noop {
				fmt.Println("seed: nothing to do, default tags already present")
				return nil
			}
			fmt.Printf("seed: created %d tags\n", report.CreatedTags)
			return nil
		},
	}
}

func newDryRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dry-run",
		Short: "Show what seeding would do",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("would migrate: users, credential_tokens, stories, tags, story_claps, comments, comment_claps, follows")
			fmt.Println("would ensure default tags: programming, go, databases, web, devops, writing, productivity, design")
			return nil
		},
	}
}

func newVerifyEmailCommand() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "verify-email",
		Short: "Mark a user's email as verified",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(email) == "" {
				return fmt.Errorf("--email is required")
			}
			db, err := openDB()
			if err != nil {
				return err
			}
			if err := database.VerifyEmail(db, email); err != nil {
				return err
			}
			fmt.Printf("marked email verified: %s\n", strings.ToLower(strings.TrimSpace(email)))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address of the user")
	return cmd
}

func openDB() (*gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return database.Open(cfg)
}
