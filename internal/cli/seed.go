package cli

import (
	"fmt"
	"math/rand"

	"tasktrack/backend/internal/database"
	"tasktrack/backend/internal/repositories"
	"tasktrack/backend/internal/services"

	"github.com/spf13/cobra"
)

func newSeedCommand() *cobra.Command {
	var seed int64

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill an empty database with sample tasks",
		Long: `seed inserts 25 sample tasks. It refuses to touch a database that
already holds tasks. A running server keeps serving cached lists until
their entries expire; seed through the API to invalidate them at once.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			pool, err := a.openPool()
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := database.Migrate(pool.DB); err != nil {
				return err
			}

			var rng *rand.Rand
			if cmd.Flags().Changed("rand-seed") {
				rng = rand.New(rand.NewSource(seed))
			}
			repo := repositories.NewTaskRepository()
			svc := services.NewTaskService(repo, services.NewSeeder(repo, rng))

			result, err := svc.SeedTasks(cmd.Context(), pool.DB)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			return nil
		},
	}
	cmd.Flags().Int64Var(&seed, "rand-seed", 0, "seed for the random generator, for reproducible data")
	return cmd
}
