package main

import (
	"fmt"

	"codeberg.org/mutker/turbinemon/internal/errors"
	"codeberg.org/mutker/turbinemon/internal/thermo"
	"github.com/spf13/cobra"
)

func newPropertiesCmd() *cobra.Command {
	var temperature, pressure, quality float64

	cmd := &cobra.Command{
		Use:   "properties",
		Short: "Evaluate water/steam enthalpy and entropy",
		Long: `Evaluates IAPWS-IF97 properties for one state, given either
--temperature and --pressure, or --pressure and --quality. Pressure is absolute.`,
		Example: `  turbinemon properties --temperature 450 --pressure 151325
  turbinemon properties --pressure 102325 --quality 1`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, err := propertyQuery(
				temperature, pressure, quality,
				cmd.Flags().Changed("temperature"), cmd.Flags().Changed("quality"),
			)
			if err != nil {
				return err
			}

			res, err := thermo.NewIF97().Evaluate(q)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "state:    %s\n", q)
			fmt.Fprintf(out, "enthalpy: %.3f J/kg\n", res.Enthalpy)
			fmt.Fprintf(out, "entropy:  %.3f J/(kg K)\n", res.Entropy)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Float64VarP(&temperature, "temperature", "t", 0, "Temperature in K")
	flags.Float64VarP(&pressure, "pressure", "p", 0, "Absolute pressure in Pa")
	flags.Float64VarP(&quality, "quality", "q", 0, "Vapor quality, 0 (liquid) to 1 (vapor)")
	_ = cmd.MarkFlagRequired("pressure")
	cmd.MarkFlagsMutuallyExclusive("temperature", "quality")

	return cmd
}

func propertyQuery(temperature, pressure, quality float64, hasTemperature, hasQuality bool) (thermo.Query, error) {
	errFactory := errors.New()

	switch {
	case hasTemperature && !hasQuality:
		return thermo.TP(temperature, pressure), nil
	case hasQuality && !hasTemperature:
		return thermo.PQ(pressure, quality), nil
	default:
		return thermo.Query{}, errFactory.WithMessage(errors.ErrInvalidArgument,
			"exactly one of --temperature or --quality is required")
	}
}
