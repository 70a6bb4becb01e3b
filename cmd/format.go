package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"water_service/internal/domain/model"
)

func writeJSON(w io.Writer, result model.ProjectionResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func writeTable(w io.Writer, result model.ProjectionResult) error {
	fmt.Fprintf(w, "Region: %s (BMC)\n\n", result.Region)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "YEAR\tBASELINE\tPREDICTED\tACTUAL\t")
	for _, p := range result.Parameters {
		fmt.Fprintf(tw, "%d\t%.6f\t%.6f\t%.6f\t\n", p.Year, p.Baseline, p.PredictedRequirement, p.ActualRequirement)
	}
	return tw.Flush()
}
