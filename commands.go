package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"pharmacrm/internal/database"
	"pharmacrm/internal/models"
	"pharmacrm/internal/service"
)

func newIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create the MongoDB indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := connectStorage()
			if err != nil {
				return err
			}
			defer storage.Close(context.Background())
			return database.EnsureIndexes(cmd.Context(), storage.Database(), log)
		},
	}
}

func newSegmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "segments",
		Short: "Print the customer segmentation report as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := connectStorage()
			if err != nil {
				return err
			}
			defer storage.Close(context.Background())

			repos := storage.Repositories()
			report, err := service.NewSegmentService(repos.Orders, repos.Customers).Report(cmd.Context(), time.Now().UTC())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}

func newStaffCmd() *cobra.Command {
	staff := &cobra.Command{
		Use:   "staff",
		Short: "Manage dashboard accounts",
	}

	var email, name, password, role string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := models.ParseRole(role)
			if err != nil {
				return err
			}
			storage, err := connectStorage()
			if err != nil {
				return err
			}
			defer storage.Close(context.Background())

			st, err := service.NewStaffService(storage.Repositories().Staff, log).Create(cmd.Context(), email, name, password, parsed)
			if err != nil {
				return err
			}
			cmd.Printf("created %s (%s) %s\n", st.Email, st.Role, st.ID.Hex())
			return nil
		},
	}
	add.Flags().StringVar(&email, "email", "", "login email")
	add.Flags().StringVar(&name, "name", "", "display name")
	add.Flags().StringVar(&password, "password", "", "initial password (min 8 characters)")
	add.Flags().StringVar(&role, "role", string(models.RolePharmacist), "admin, manager or pharmacist")
	_ = add.MarkFlagRequired("email")
	_ = add.MarkFlagRequired("password")

	staff.AddCommand(add)
	return staff
}
