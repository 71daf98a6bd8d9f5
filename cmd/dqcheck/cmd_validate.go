package main

import (
	"fmt"

	"dqcheck/internal/config"

	"github.com/spf13/cobra"
)

func newValidateCmd(getenv func(string) string) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Lint a pipeline config and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(f, getenv)
			if err != nil {
				return err
			}
			issues := config.ValidatePipeline(cfg)
			for _, iss := range issues {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
			}
			if config.HasErrors(issues) {
				return fmt.Errorf("configuration is invalid: %s", f.configPath)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid: %s\n", f.configPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "configs/movies.yaml", "pipeline config path (.json, .yaml or .yml)")
	return cmd
}
