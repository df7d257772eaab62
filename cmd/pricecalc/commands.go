package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/noah-isme/oilprice-ni/internal/pricing"
	"github.com/noah-isme/oilprice-ni/internal/quote"
	"github.com/noah-isme/oilprice-ni/internal/supplier"
)

type engineFlags struct {
	margin    float64
	minVolume float64
	maxVolume float64
	volumes   []float64
}

func (f *engineFlags) engine() (*pricing.Engine, error) {
	return pricing.NewEngine(pricing.Config{
		Margin:          f.margin,
		MinVolume:       f.minVolume,
		MaxVolume:       f.maxVolume,
		StandardVolumes: f.volumes,
	})
}

func newRootCmd() *cobra.Command {
	defaults := pricing.DefaultConfig()
	flags := &engineFlags{}

	root := &cobra.Command{
		Use:           "pricecalc",
		Short:         "Heating oil price projections for Northern Ireland",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.Float64Var(&flags.margin, "margin", defaults.Margin, "fractional margin applied to projected prices")
	pf.Float64Var(&flags.minVolume, "min-volume", defaults.MinVolume, "smallest orderable volume in litres")
	pf.Float64Var(&flags.maxVolume, "max-volume", defaults.MaxVolume, "largest orderable volume in litres")
	pf.Float64SliceVar(&flags.volumes, "volumes", defaults.StandardVolumes, "standard order volumes in litres")

	root.AddCommand(
		projectCmd(flags),
		formatCmd(),
		parseCmd(),
		closestCmd(flags),
		savingsCmd(),
		compareCmd(flags),
	)
	return root
}

func projectCmd(flags *engineFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "project BASE_PRICE BASE_VOLUME TARGET_VOLUME",
		Short:   "Project a reference price onto another volume",
		Example: "  pricecalc project £415.00 500 900",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := flags.engine()
			if err != nil {
				return err
			}
			base, err := pricing.ParsePrice(args[0])
			if err != nil {
				return err
			}
			baseVolume, err := parseNumber("base volume", args[1])
			if err != nil {
				return err
			}
			target, err := parseNumber("target volume", args[2])
			if err != nil {
				return err
			}
			price, err := engine.ProjectPrice(base, baseVolume, target)
			if err != nil {
				return err
			}
			ppl, err := pricing.FormatPricePerLitre(price, target)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", pricing.FormatPrice(price), ppl)
			if !engine.IsValidVolume(target) {
				minVol, maxVol := engine.VolumeBounds()
				fmt.Fprintf(out, "warning: %g litres is outside the orderable range %g-%g\n", target, minVol, maxVol)
			}
			return nil
		},
	}
}

func formatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "format AMOUNT...",
		Short: "Render amounts as pounds sterling",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				v, err := parseNumber("amount", arg)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), pricing.FormatPrice(v))
			}
			return nil
		},
	}
}

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse TEXT",
		Short: "Parse a displayed price such as \"£1,234.50\"",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := pricing.ParsePrice(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(v, 'f', -1, 64))
			return nil
		},
	}
}

func closestCmd(flags *engineFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "closest VOLUME",
		Short: "Snap a volume to the nearest standard order size",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := flags.engine()
			if err != nil {
				return err
			}
			v, err := parseNumber("volume", args[0])
			if err != nil {
				return err
			}
			valid := "valid"
			if !engine.IsValidVolume(v) {
				valid = "not orderable"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%g (%s)\n", engine.ClosestStandardVolume(v), valid)
			return nil
		},
	}
}

func savingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "savings ACTUAL AVERAGE [ORIGINAL]",
		Short: "Savings against the average and discount against the original price",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make([]float64, len(args))
			for i, arg := range args {
				v, err := pricing.ParsePrice(arg)
				if err != nil {
					return err
				}
				values[i] = v
			}
			actual, average := values[0], values[1]
			original := average
			if len(values) == 3 {
				original = values[2]
			}
			saving := pricing.CalculateSavings(actual, average)
			discount := pricing.CalculateDiscountPercentage(original, actual)
			fmt.Fprintf(cmd.OutOrStdout(), "savings %s, discount %.1f%%\n", pricing.FormatPrice(saving), discount)
			return nil
		},
	}
}

func compareCmd(flags *engineFlags) *cobra.Command {
	var seedPath, pc string
	var volume float64
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Rank suppliers from a seed file for a postcode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := flags.engine()
			if err != nil {
				return err
			}
			f, err := os.Open(seedPath)
			if err != nil {
				return err
			}
			rows, err := supplier.LoadSeed(f)
			_ = f.Close()
			if err != nil {
				return err
			}
			svc := &quote.Service{Engine: engine, Suppliers: supplier.NewMemoryStore(rows...), Logger: zerolog.Nop()}
			cmp, err := svc.Compare(context.Background(), quote.Request{Postcode: pc, Volume: volume})
			if err != nil {
				return err
			}
			if len(cmp.Quotes) == 0 {
				return errors.New("no suppliers deliver to " + cmp.Postcode)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "SUPPLIER\tPRICE\tPPL\tSAVING\n")
			for _, q := range cmp.Quotes {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", q.Supplier, q.PriceDisplay, q.PencePerLitre, q.SavingsDisplay)
			}
			fmt.Fprintf(tw, "average\t%s\t\t\n", cmp.AverageDisplay)
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&seedPath, "seed", "seed/suppliers.yaml", "supplier seed file")
	cmd.Flags().StringVar(&pc, "postcode", "", "delivery postcode")
	cmd.Flags().Float64Var(&volume, "volume", 500, "order volume in litres")
	_ = cmd.MarkFlagRequired("postcode")
	return cmd
}

func parseNumber(field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a number", field, raw)
	}
	return v, nil
}
