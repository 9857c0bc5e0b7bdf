package cmd

import (
	"fmt"

	"food-ordering-api/config"
	"food-ordering-api/repository"
	"food-ordering-api/services"

	"github.com/spf13/cobra"
)

var seedOpts struct {
	username string
	email    string
	password string
}

// seedCmd bootstraps the first super-admin; no API route can create one.
var seedCmd = &cobra.Command{
	Use:   "seed-superadmin",
	Short: "Create a super-admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer log.Sync()

		db, err := config.OpenDB(cfg, log)
		if err != nil {
			return err
		}
		accounts := services.NewAccountService(repository.NewUserRepository(db), services.BcryptVerifier{}, log)
		u, err := accounts.SeedSuperAdmin(cmd.Context(), seedOpts.username, seedOpts.email, seedOpts.password)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "super-admin %s created with id %d\n", u.Email, u.ID)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedOpts.username, "username", "superadmin", "Account username")
	seedCmd.Flags().StringVar(&seedOpts.email, "email", "", "Account email")
	seedCmd.Flags().StringVar(&seedOpts.password, "password", "", "Account password")
	seedCmd.MarkFlagRequired("email")
	seedCmd.MarkFlagRequired("password")
}
