package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"emailfinder/config"
	"emailfinder/utils"
)

var rootCmd = &cobra.Command{
	Use:           "emailfinder",
	Short:         "Find and verify a person's email address at a domain",
	SilenceUsage: true,
	RunE: func(_ *cobra.Command, _ []string) error {
		return serve()
	},
}

const defaultTokenTTL = 30 * 24 * time.Hour

var (
	tokenClient string
	tokenTTL    time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API access token signed with JWT_SECRET",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if tokenClient == "" {
			return errors.New("--client is required")
		}
		if err := config.LoadConfig(); err != nil {
			return err
		}
		if config.AppConfig.JWTSecret == "" {
			return errors.New("JWT_SECRET is not set, the API is running without authentication")
		}
		token, err := utils.GenerateJWTToken(tokenClient, config.AppConfig.JWTSecret, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenClient, "client", "", "client name recorded as the token subject")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", defaultTokenTTL, "token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
