package main

import (
	"fmt"

	"github.com/jonathan/resume-parser/internal/config"
	"github.com/jonathan/resume-parser/internal/server"
	"github.com/spf13/cobra"
)

var issueTokenSubject string

var issueTokenCmd = &cobra.Command{
	Use:   "issue-token",
	Short: "Mint a bearer token for the HTTP API",
	Long:  `Signs a token for --subject with JWT_SECRET. The token expires after JWT_EXPIRATION_HOURS (default 24).`,
	Args:  cobra.NoArgs,
	RunE:  runIssueToken,
}

func init() {
	issueTokenCmd.Flags().StringVarP(&issueTokenSubject, "subject", "s", "", "Who the token is issued to (required)")
	if err := issueTokenCmd.MarkFlagRequired("subject"); err != nil {
		panic(fmt.Sprintf("failed to mark subject flag as required: %v", err))
	}
	rootCmd.AddCommand(issueTokenCmd)
}

func runIssueToken(cmd *cobra.Command, _ []string) error {
	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return err
	}

	token, err := server.NewJWTService(jwtCfg).GenerateToken(issueTokenSubject)
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}
