package main

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"contourqa/pkg/compare"
	"contourqa/pkg/config"
	"contourqa/pkg/report"
)

var (
	configFile    string
	imagingDir    string
	refStructDir  string
	newStructDir  string
	structures    []string
	outputFile    string
	saveImages    bool
	imageDir      string
	diceOnly      bool
	writeConfig   bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "contourqa",
	Short: "Compare two RTSTRUCT contour deliveries on shared CT imaging",
	Long: `contourqa scores pairs of DICOM RTSTRUCT files against each other on
the voxel grid of the accompanying CT series. For every structure
present in both deliveries it reports the volumetric Dice coefficient
and, optionally, the added path length and surface Dice at a
configurable tolerance.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if cfg.Output.Verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if writeConfig {
			return config.CreateDefaultConfigFile(configFile)
		}
		if imagingDir == "" || refStructDir == "" || newStructDir == "" {
			return fmt.Errorf("the --imaging, --ref and --new folders are all required")
		}

		if len(structures) > 0 {
			cfg.Comparison.Structures = structures
		}
		if diceOnly {
			cfg.Comparison.CalcAllParameters = false
		}
		if outputFile != "" {
			cfg.Output.ResultsFile = outputFile
		}
		if saveImages {
			cfg.Output.SaveComparisonImages = true
		}
		if imageDir != "" {
			cfg.Output.ImageDir = imageDir
		}

		fmt.Println("================================")
		fmt.Println("RTSTRUCT CONTOUR COMPARISON")
		fmt.Println("================================")

		comparer := compare.NewComparer(&compare.Params{
			ImagingDir:        imagingDir,
			RefStructDir:      refStructDir,
			NewStructDir:      newStructDir,
			Structures:        cfg.Comparison.Structures,
			APLTolerance:      cfg.Comparison.APLTolerance,
			SDSCTolerance:     cfg.Comparison.SDSCTolerance,
			CalcAllParameters: cfg.Comparison.CalcAllParameters,
			SaveImages:        cfg.Output.SaveComparisonImages,
			ImageDir:          cfg.Output.ImageDir,
		})

		startTime := time.Now()
		rows, err := comparer.Run()
		if err != nil {
			return err
		}
		fmt.Printf("\nComparison completed in %.2f seconds\n", time.Since(startTime).Seconds())

		if len(rows) == 0 {
			fmt.Println("No structure pairs could be scored.")
			return nil
		}

		if err := report.WriteCSV(rows, cfg.Output.ResultsFile); err != nil {
			return fmt.Errorf("writing results: %w", err)
		}
		fmt.Printf("Results saved to: %s\n", cfg.Output.ResultsFile)

		report.Summarize(rows).Print()
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "contourqa.yaml", "Configuration file")
	rootCmd.Flags().StringVar(&imagingDir, "imaging", "", "Folder with one CT series subfolder per patient")
	rootCmd.Flags().StringVar(&refStructDir, "ref", "", "Folder with the reference RTSTRUCT files")
	rootCmd.Flags().StringVar(&newStructDir, "new", "", "Folder with the RTSTRUCT files under review")
	rootCmd.Flags().StringSliceVar(&structures, "structures", nil, "Structure names to compare (default: all common structures)")
	rootCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Results CSV file")
	rootCmd.Flags().BoolVar(&saveImages, "save-images", false, "Save per-slice comparison overlay images")
	rootCmd.Flags().StringVar(&imageDir, "image-dir", "", "Folder for comparison overlay images")
	rootCmd.Flags().BoolVar(&diceOnly, "dice-only", false, "Calculate only the volumetric Dice coefficient")
	rootCmd.Flags().BoolVar(&writeConfig, "write-config", false, "Write a default configuration file and exit")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}
