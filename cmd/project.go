package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"water_service/internal/api"
	"water_service/internal/core"
	"water_service/internal/domain/model"
	"water_service/internal/infrastructure/demandclient"
)

type projectOptions struct {
	file    string
	output  string
	remote  string
	timeout time.Duration
	input   model.InputParameters
}

func projectCmd() *cobra.Command {
	opts := projectOptions{}

	cmd := &cobra.Command{
		Use:   "project",
		Short: "Compute a demand projection from the command line",
		Long: `Compute the six-year demand projection for one region.

Inputs come from a YAML or JSON scenario file (--file), from flags, or both;
flags that are set explicitly override values from the file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in, err := opts.resolve(cmd)
			if err != nil {
				return err
			}
			return runProject(cmd, in, opts, cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&opts.file, "file", "f", "", "Scenario file (YAML or JSON)")
	fs.StringVarP(&opts.output, "output", "o", "json", "Output format: json or table")
	fs.StringVar(&opts.remote, "remote", "", "Base URL of a running service to compute against instead of locally")
	fs.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout for --remote")
	fs.StringVar(&opts.input.Region, "region", "", "Region identifier")
	fs.Int64Var(&opts.input.PopulationSize, "population", 0, "Current population")
	fs.Float64Var(&opts.input.GPCD, "gpcd", 0, "Gallons per capita per day")
	fs.Float64Var(&opts.input.PlantFactor, "plant-factor", 1, "Plant factor multiplier")
	fs.Float64Var(&opts.input.Precipitation, "precipitation", 0, "Precipitation in percent")
	fs.Float64Var(&opts.input.CultivatedLand, "cultivated-land", 0, "Cultivated land change in percent")
	fs.Float64Var(&opts.input.DemographicShift, "demographic-shift", 0, "Demographic shift in percent")
	fs.IntVar(&opts.input.BaseYear, "base-year", 0, "Calendar year of the first projection")

	return cmd
}

func (o projectOptions) resolve(cmd *cobra.Command) (model.InputParameters, error) {
	if o.file == "" {
		return o.input, nil
	}

	in, err := loadScenario(o.file)
	if err != nil {
		return model.InputParameters{}, err
	}

	fs := cmd.Flags()
	overrides := []struct {
		flag  string
		apply func()
	}{
		{"region", func() { in.Region = o.input.Region }},
		{"population", func() { in.PopulationSize = o.input.PopulationSize }},
		{"gpcd", func() { in.GPCD = o.input.GPCD }},
		{"plant-factor", func() { in.PlantFactor = o.input.PlantFactor }},
		{"precipitation", func() { in.Precipitation = o.input.Precipitation }},
		{"cultivated-land", func() { in.CultivatedLand = o.input.CultivatedLand }},
		{"demographic-shift", func() { in.DemographicShift = o.input.DemographicShift }},
		{"base-year", func() { in.BaseYear = o.input.BaseYear }},
	}
	for _, ov := range overrides {
		if fs.Changed(ov.flag) {
			ov.apply()
		}
	}
	return in, nil
}

// loadScenario reads a scenario file and applies the same field checks as
// the HTTP endpoint.
func loadScenario(path string) (model.InputParameters, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.InputParameters{}, fmt.Errorf("read scenario: %w", err)
	}
	return parseScenario(raw)
}

func parseScenario(raw []byte) (model.InputParameters, error) {
	jsonBytes, err := yaml.YAMLToJSON(raw)
	if err != nil {
		return model.InputParameters{}, fmt.Errorf("parse scenario: %w", err)
	}
	in, err := api.DecodeCalculateRequest(bytes.NewReader(jsonBytes))
	if err != nil {
		return model.InputParameters{}, fmt.Errorf("invalid scenario: %w", err)
	}
	return in, nil
}

func runProject(cmd *cobra.Command, in model.InputParameters, opts projectOptions, w io.Writer) error {
	if opts.output != "json" && opts.output != "table" {
		return fmt.Errorf("unknown output format %q", opts.output)
	}

	var (
		result model.ProjectionResult
		err    error
	)
	if opts.remote != "" {
		result, err = demandclient.NewHTTPClient(opts.remote, opts.timeout).Calculate(cmd.Context(), in)
	} else {
		result, err = core.NewProjectionService(nil, nil).Project(cmd.Context(), in, "cli")
	}
	if err != nil {
		return err
	}

	if opts.output == "table" {
		return writeTable(w, result)
	}
	return writeJSON(w, result)
}
