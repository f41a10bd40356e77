package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ruixin88/backtest-console/src/console-api/models"
	"github.com/ruixin88/backtest-console/src/dbutils"
	"github.com/ruixin88/backtest-console/src/utils"
)

var rootCmd = &cobra.Command{
	Use:   "list_tasks",
	Short: "Print the backtest tasks table.",
	Run: func(cmd *cobra.Command, args []string) {
		status, err := cmd.Flags().GetString("status")
		if err != nil {
			log.Fatalf("failed to read status flag: %v", err)
		}

		if err := run(status); err != nil {
			log.Fatal(err)
		}
	},
}

func run(status string) error {
	if err := utils.InitEnvironmentVariables(); err != nil {
		log.Warnf("continuing without .env file: %v", err)
	}

	db, err := dbutils.InitPostgres(
		utils.GetEnv("POSTGRES_HOST", "localhost"),
		utils.GetEnv("POSTGRES_PORT", "5432"),
		utils.GetEnv("POSTGRES_USER", "postgres"),
		os.Getenv("POSTGRES_PASSWORD"),
		utils.GetEnv("POSTGRES_DB", "backtest_console"),
	)
	if err != nil {
		return fmt.Errorf("failed to init postgres: %w", err)
	}

	query := db.Model(&models.Task{}).Order("created_at desc")
	if status != "" {
		taskStatus := models.TaskStatus(status)
		if err := taskStatus.Validate(); err != nil {
			return err
		}

		query = query.Where("status = ?", taskStatus)
	}

	var tasks []*models.Task
	if err := query.Find(&tasks).Error; err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Task ID", "Symbol", "Granularity", "Status", "Progress", "Created At"})
	table.SetAlignment(tablewriter.ALIGN_CENTER)

	for _, task := range tasks {
		progress := fmt.Sprintf("%d/%d", task.ProcessedItems, task.TotalItems)
		table.Append([]string{
			task.TaskID,
			task.StockSymbol,
			string(task.TimeGranularity),
			string(task.Status),
			progress,
			task.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	table.Render()
	return nil
}

func main() {
	rootCmd.PersistentFlags().String("status", "", "Only show tasks with this status.")

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
