package main

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	apperrors "quick-swgoh/pkg/common/errors"
	lookupmodel "quick-swgoh/pkg/core/lookup/model"
	"quick-swgoh/pkg/web/router"
)

// cliClient 命令行查询使用的输出区域
const cliClient = "cli"

// lookupCmd 不启动服务，直接查询一次并打印输出区域
var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Run a single lookup against the backend",
	Long: `Send one lookup to the backend and print the pretty-printed answer.

Available subcommands:
  character - POST {"charId": <id>} to /characters
  account   - POST {"allyCode": <code>} to /account`,
}

var lookupCharacterCmd = &cobra.Command{
	Use:   "character <charId>",
	Short: "Look up a character by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLookup(cmd, func(deps router.Dependencies, rid string) lookupmodel.Result {
			return deps.Lookup.LookupCharacter(cmd.Context(), cliClient, lookupmodel.CharacterQuery{CharID: args[0]}, rid)
		})
	},
}

var lookupToken string

var lookupAccountCmd = &cobra.Command{
	Use:   "account <allyCode>",
	Short: "Look up an account by ally code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLookup(cmd, func(deps router.Dependencies, rid string) lookupmodel.Result {
			return deps.Lookup.LookupAccount(cmd.Context(), cliClient, lookupmodel.AccountQuery{AllyCode: args[0]}, lookupToken, rid)
		})
	},
}

func init() {
	lookupAccountCmd.Flags().StringVar(&lookupToken, "token", "", "bearer token issued by the backend's /signIn")
	lookupCmd.AddCommand(lookupCharacterCmd)
	lookupCmd.AddCommand(lookupAccountCmd)
}

func runLookup(cmd *cobra.Command, do func(deps router.Dependencies, rid string) lookupmodel.Result) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// 单次查询不写审计表
	cfg.Database.Enabled = false

	deps, err := router.BuildDependencies(cfg)
	if err != nil {
		return err
	}

	res := do(deps, uuid.NewString())
	if !res.OK() {
		return errors.New(apperrors.Describe(res.Err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), deps.Lookup.Output(cliClient))
	return nil
}
