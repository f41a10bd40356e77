package main

import (
	"context"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ruixin88/backtest-console/src/console-api/models"
	"github.com/ruixin88/backtest-console/src/console-api/services"
	"github.com/ruixin88/backtest-console/src/utils"
)

type importArgs struct {
	Symbol      string
	Granularity string
	DataDir     string
	CSVPath     string
	StartDate   string
	EndDate     string
}

var csvCmd = &cobra.Command{
	Use:   "csv",
	Short: "Import kline bars from a local CSV file.",
	Run: func(cmd *cobra.Command, _ []string) {
		args := argsFrom(cmd)
		if err := runCSV(args); err != nil {
			log.Fatal(err)
		}
	},
}

var polygonCmd = &cobra.Command{
	Use:   "polygon",
	Short: "Fetch kline bars from the Polygon API.",
	Run: func(cmd *cobra.Command, _ []string) {
		args := argsFrom(cmd)
		if err := runPolygon(args); err != nil {
			log.Fatal(err)
		}
	},
}

var rootCmd = &cobra.Command{
	Use:   "import_market_data",
	Short: "Load kline bars into the console's data directory.",
}

func argsFrom(cmd *cobra.Command) importArgs {
	symbol, _ := cmd.Flags().GetString("symbol")
	granularity, _ := cmd.Flags().GetString("granularity")
	dataDir, _ := cmd.Flags().GetString("dataDir")
	csvPath, _ := cmd.Flags().GetString("csv")
	startDate, _ := cmd.Flags().GetString("start")
	endDate, _ := cmd.Flags().GetString("end")

	return importArgs{
		Symbol:      symbol,
		Granularity: granularity,
		DataDir:     dataDir,
		CSVPath:     csvPath,
		StartDate:   startDate,
		EndDate:     endDate,
	}
}

func runCSV(args importArgs) error {
	granularity := models.TimeGranularity(args.Granularity)
	if err := granularity.Validate(); err != nil {
		return err
	}

	f, err := os.Open(args.CSVPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args.CSVPath, err)
	}
	defer f.Close()

	store := services.NewKlineStore(args.DataDir)
	count, err := store.ImportCSV(f, args.Symbol, granularity)
	if err != nil {
		return err
	}

	log.Infof("imported %d bars for %s", count, args.Symbol)
	return nil
}

func runPolygon(args importArgs) error {
	if err := utils.InitEnvironmentVariables(); err != nil {
		log.Warnf("continuing without .env file: %v", err)
	}

	apiKey := os.Getenv("POLYGON_API_KEY")
	if apiKey == "" {
		return fmt.Errorf("missing POLYGON_API_KEY environment variable")
	}

	granularity := models.TimeGranularity(args.Granularity)
	if err := granularity.Validate(); err != nil {
		return err
	}

	from, err := models.ParseFlexibleTime(args.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}

	to, err := models.ParseFlexibleTime(args.EndDate)
	if err != nil {
		return fmt.Errorf("invalid end date: %w", err)
	}

	store := services.NewKlineStore(args.DataDir)
	importer := services.NewPolygonImporter(apiKey, store)

	count, err := importer.Import(context.Background(), args.Symbol, granularity, from, to)
	if err != nil {
		return err
	}

	log.Infof("imported %d bars for %s", count, args.Symbol)
	return nil
}

func main() {
	rootCmd.PersistentFlags().String("symbol", "", "The stock symbol to import.")
	rootCmd.PersistentFlags().String("granularity", "daily", "Bar granularity: daily, hourly or minute.")
	rootCmd.PersistentFlags().String("dataDir", "data", "The console data directory.")
	rootCmd.MarkPersistentFlagRequired("symbol")

	csvCmd.Flags().String("csv", "", "Path to the CSV file to import.")
	csvCmd.MarkFlagRequired("csv")

	polygonCmd.Flags().String("start", "", "Start date, e.g. 2024-01-01.")
	polygonCmd.Flags().String("end", "", "End date, e.g. 2024-06-30.")
	polygonCmd.MarkFlagRequired("start")
	polygonCmd.MarkFlagRequired("end")

	rootCmd.AddCommand(csvCmd, polygonCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
