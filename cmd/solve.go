package cmd

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"heatsim/calculator"
	"heatsim/model"
	"heatsim/queue"
	"heatsim/weld_process"
)

type solveSummary struct {
	Params     calculator.ParamsEcho  `json:"goldak_params"`
	Solver     calculator.SolverInfo  `json:"solver_info"`
	CenterPeak float64                `json:"center_peak_temperature"`
	CenterT85  *float64               `json:"center_t8_5"`
	FusionArea float64                `json:"fusion_zone_area_mm2"`
	HAZ        calculator.HAZProfile  `json:"haz"`
	Comparison *calculator.Comparison `json:"comparison_with_rosenthal,omitempty"`
}

func newSolveCmd(opts *options) *cobra.Command {
	var (
		c       model.SimulationConfig
		steel   string
		compare bool
		full    bool
	)
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Run one single-pass simulation and print the result as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steel != "" {
				c.Material = &model.MaterialSpec{Steel: steel}
			}
			params, cfg, err := queue.SimulationInputs(&c)
			if err != nil {
				return err
			}
			solver, err := calculator.NewGoldakSolver(params, cfg)
			if err != nil {
				return err
			}
			res, err := solver.Solve(cmd.Context(), nil, func(f float64) {
				log.WithField("progress", f).Debug("求解中")
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if full {
				return enc.Encode(res.ToData())
			}
			summary := solveSummary{
				Params:     params.Echo(),
				Solver:     res.SolverInfo,
				CenterPeak: res.CenterPeak(),
				CenterT85:  res.CenterT85(),
				FusionArea: res.FusionZoneAreaMM2,
				HAZ:        res.HAZ(params.TransformationTemps),
			}
			if compare {
				cmp := calculator.Compare(&params, res)
				summary.Comparison = &cmp
			}
			return enc.Encode(summary)
		},
	}
	f := cmd.Flags()
	f.StringVar(&c.Process, "process", string(weld_process.MIGMAG), "welding process: gtaw, smaw, mig_mag, saw")
	f.Float64Var(&c.HeatInput, "heat-input", 1.5, "heat input, kJ/mm")
	f.Float64Var(&c.TravelSpeed, "speed", 5, "travel speed, mm/s")
	f.Float64Var(&c.Preheat, "preheat", 20, "preheat temperature, °C")
	f.StringVar(&c.GridResolution, "preset", "", "grid preset: coarse, medium, fine (default from [calculator] DefaultPreset)")
	f.StringVar(&steel, "steel", "", "built-in steel grade")
	f.BoolVar(&compare, "compare", false, "include the Rosenthal comparison")
	f.BoolVar(&full, "full", false, "print the full result instead of a summary")
	return cmd
}
