package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile"
	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/history"
	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/models"
	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/output"
	"github.com/ukaji3/ctdprofile-go/pkg/ctdprofile/parser"
	"go.uber.org/zap"
)

func newModifyCmd() *cobra.Command {
	var (
		outputPath string
		layoutPath string
		instrument string
		crlf       bool
	)

	cmd := &cobra.Command{
		Use:   "modify [input.cnv]",
		Short: "Finalize a down-cast profile (true depth, header annotations)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath := args[0]
			if err := requireFile(inputPath); err != nil {
				return err
			}
			if layoutPath == "" {
				layoutPath = cfg.Profile.LayoutFile
			}
			if layoutPath == "" {
				return fmt.Errorf("%w: --layout is required", ctdprofile.ErrMissingAttribute)
			}
			if outputPath == "" {
				return fmt.Errorf("--output is required")
			}

			opts := baseOptions()
			if crlf {
				opts.LineBreak = ctdprofile.LineBreakCRLF
			}

			layout, err := loadLayout(layoutPath, instrument, inputPath, opts)
			if err != nil {
				return err
			}
			res, err := ctdprofile.ModifyFile(inputPath, outputPath, layout, opts)
			if err != nil {
				return err
			}
			for _, w := range res.Warnings {
				logger.Warn("step warning", zap.Error(w))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output profile path")
	cmd.Flags().StringVar(&layoutPath, "layout", "", "Sensor layout file (tab-separated), or a directory of layouts named by instrument serial")
	cmd.Flags().StringVar(&instrument, "instrument", "", "Instrument serial to pick from a layout directory (default: pressure sensor serial)")
	cmd.Flags().BoolVar(&crlf, "crlf", false, "Write CRLF line breaks")
	return cmd
}

// loadLayout reads the layout at path. A directory holds one layout per
// instrument; the profile's own instrument is used unless one is named.
func loadLayout(path, instrument, inputPath string, opts ctdprofile.Options) (*models.SensorLayout, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load layout: %w", err)
	}
	if !info.IsDir() {
		layout, err := parser.LoadLayout(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load layout: %w", err)
		}
		return layout, nil
	}

	layouts, err := parser.LoadLayoutDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load layouts: %w", err)
	}
	if instrument != "" {
		return layouts.ForInstrument(instrument)
	}
	return ctdprofile.LayoutForProfile(inputPath, layouts, opts)
}

func newSensorsCmd() *cobra.Command {
	var (
		outputPath string
		pretty     bool
	)

	cmd := &cobra.Command{
		Use:   "sensors [input.cnv]",
		Short: "List the sensors declared in a profile as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath := args[0]
			if err := requireFile(inputPath); err != nil {
				return err
			}

			sf, err := ctdprofile.ExtractSensorFile(inputPath, baseOptions())
			if err != nil {
				return err
			}
			jsonData, err := output.SensorsToJSON(&output.SensorsView{
				File:    filepath.Base(sf.Path),
				Info:    sf.Info,
				Sensors: sf.Sensors,
			}, pretty)
			if err != nil {
				return fmt.Errorf("serialization failed: %w", err)
			}

			if outputPath == "" {
				fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
				return nil
			}
			return output.WriteFile(outputPath, jsonData, baseOptions().Overwrite)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "Pretty-print JSON output")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var (
		outputDir     string
		referencePath string
		sheet         string
		xlsx          bool
	)

	cmd := &cobra.Command{
		Use:   "history [input.cnv...]",
		Short: "Consolidate sensor blocks of many profiles into validity intervals",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if err := requireFile(path); err != nil {
					return err
				}
			}
			if referencePath == "" {
				referencePath = cfg.Reference.Workbook
			}
			if sheet == "" {
				sheet = cfg.Reference.Sheet
			}

			var lookup history.LookupFunc
			if referencePath != "" {
				ref, err := parser.LoadReference(referencePath, sheet)
				if err != nil {
					return fmt.Errorf("failed to load reference: %w", err)
				}
				lookup = ref.Lookup
			}

			opts := baseOptions()
			records, skipped, err := ctdprofile.ConsolidateFiles(cmd.Context(), args, lookup, opts)
			if err != nil {
				return err
			}
			if len(skipped) > 0 {
				logger.Warn("sensors without reference rows were skipped", zap.Int("count", len(skipped)))
			}

			if err := output.WriteSummaryTSV(filepath.Join(outputDir, "sensorinfo.txt"), records, opts.Overwrite); err != nil {
				return err
			}
			if xlsx {
				if err := output.WriteSummaryXLSX(filepath.Join(outputDir, "sensorinfo.xlsx"), records, opts.Overwrite); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Output directory")
	cmd.Flags().StringVar(&referencePath, "reference", "", "Sensor reference workbook (xlsx)")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Reference sheet name")
	cmd.Flags().BoolVar(&xlsx, "xlsx", false, "Also write the summary as xlsx")
	return cmd
}
