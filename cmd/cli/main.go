package main

import (
	"encoding/json"
	"fmt"
	"os"

	"cropadvisor/adapters/model"
	"cropadvisor/domain/crop"
	"cropadvisor/internal/features"
	"cropadvisor/internal/modelstore"
	"cropadvisor/internal/recommend"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "cropadvisor-cli",
		Short:        "Crop advisor CLI for feature engineering and offline recommendations",
		SilenceUsage: true,
	}

	var manifest string
	defaultManifest := os.Getenv("MODEL_MANIFEST")
	if defaultManifest == "" {
		defaultManifest = "./models/model.yaml"
	}
	rootCmd.PersistentFlags().StringVar(&manifest, "manifest", defaultManifest, "path to the model manifest")

	rootCmd.AddCommand(
		newEngineerCmd(),
		newRecommendCmd(&manifest),
		newBatchCmd(&manifest),
		newClassesCmd(&manifest),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// observationFlags binds one flag per raw reading
func observationFlags(cmd *cobra.Command, obs *crop.RawObservation) {
	f := cmd.Flags()
	f.Float64VarP(&obs.Nitrogen, "nitrogen", "n", 0, "nitrogen (N) content")
	f.Float64VarP(&obs.Phosphorus, "phosphorus", "p", 0, "phosphorus (P) content")
	f.Float64VarP(&obs.Potassium, "potassium", "k", 0, "potassium (K) content")
	f.Float64VarP(&obs.Temperature, "temperature", "t", 0, "temperature in °C")
	f.Float64Var(&obs.Humidity, "humidity", 0, "relative humidity in %")
	f.Float64Var(&obs.PH, "ph", 0, "soil pH")
	f.Float64VarP(&obs.Rainfall, "rainfall", "r", 0, "rainfall in mm")
	for _, name := range []string{"nitrogen", "phosphorus", "potassium", "temperature", "humidity", "ph", "rainfall"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

func loadService(manifest string) (*recommend.Service, error) {
	m, err := model.Load(model.Options{ManifestPath: manifest})
	if err != nil {
		return nil, err
	}
	return recommend.NewService(modelstore.NewLoaded(m), recommend.Options{}), nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newEngineerCmd() *cobra.Command {
	var obs crop.RawObservation

	cmd := &cobra.Command{
		Use:   "engineer",
		Short: "Print the engineered features of one observation",
		Long: `Derive the model features from raw readings without loading a model.

Example: cropadvisor-cli engineer -n 90 -p 42 -k 43 -t 20.8 --humidity 82 --ph 6.5 -r 202.9`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := features.Derive(obs)
			if err != nil {
				return err
			}
			return printJSON(f)
		},
	}
	observationFlags(cmd, &obs)
	return cmd
}

func newRecommendCmd(manifest *string) *cobra.Command {
	var (
		obs    crop.RawObservation
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend crops for one observation",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := loadService(*manifest)
			if err != nil {
				return err
			}
			rec, err := service.Recommend(cmd.Context(), recommend.Request{Observation: obs, Source: crop.SourceCLI})
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(rec)
			}

			fmt.Printf("Recommended crop: %s (%.2f%% confidence)\n\n", rec.Result.TopCrop, rec.Result.ConfidencePercent)
			for i, ranked := range rec.Result.RankedTopN {
				fmt.Printf("%d. %-14s %6.2f%%\n", i+1, ranked.Crop, ranked.ProbabilityPercent)
			}
			fmt.Printf("\nRainfall: %s, soil pH: %s, model %s\n",
				rec.Features.RainfallLevel, rec.Features.PHCategory, rec.ModelVersion)
			return nil
		},
	}
	observationFlags(cmd, &obs)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full recommendation as JSON")
	return cmd
}

func newBatchCmd(manifest *string) *cobra.Command {
	var (
		format      string
		out         string
		maxRows     int
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "batch [file]",
		Short: "Recommend every row of a CSV or XLSX file",
		Long: `Recommend every row of a CSV or XLSX file with columns N, P, K,
temperature, humidity, ph and rainfall. Output formats are markdown, html and json.

Example: cropadvisor-cli batch fields.xlsx --format html --out report.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := readTable(args[0], maxRows)
			if err != nil {
				return err
			}
			m, err := model.Load(model.Options{ManifestPath: *manifest})
			if err != nil {
				return err
			}
			service := recommend.NewService(modelstore.NewLoaded(m), recommend.Options{BatchConcurrency: concurrency})

			report, err := service.RecommendTable(cmd.Context(), table, "", crop.SourceCLI)
			if err != nil {
				return err
			}

			rendered, err := renderReport(report, format, args[0])
			if err != nil {
				return err
			}
			if out == "" {
				_, err = os.Stdout.Write(rendered)
				return err
			}
			if err := os.WriteFile(out, rendered, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "Wrote %d rows (%d failed) to %s\n", report.Summary.Total, report.Summary.Failed, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "markdown", "output format: markdown, html or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the report to a file instead of stdout")
	cmd.Flags().IntVar(&maxRows, "max-rows", 5000, "maximum number of data rows")
	cmd.Flags().IntVar(&concurrency, "concurrency", 8, "rows recommended in parallel")
	return cmd
}

func newClassesCmd(manifest *string) *cobra.Command {
	return &cobra.Command{
		Use:   "classes",
		Short: "List the crops the model can recommend",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := loadService(*manifest)
			if err != nil {
				return err
			}
			classes, err := service.Classes(cmd.Context())
			if err != nil {
				return err
			}
			for i, name := range classes {
				fmt.Printf("%2d  %s\n", i, name)
			}
			return nil
		},
	}
}
