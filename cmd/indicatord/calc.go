package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"indicator-overlay/internal/gateway"
	"indicator-overlay/internal/indicator"
)

func newCalcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "compute an overlay from closes read from a file or stdin",
		Long: "calc reads closing prices (a JSON array, or numbers separated by whitespace\n" +
			"or commas) and prints the indicator overlay, or its latest-bar summary, as JSON.",
		Args: cobra.NoArgs,
		RunE: runCalc,
	}
	cmd.Flags().StringP("file", "f", "", "read closes from this file instead of stdin")
	cmd.Flags().IntP("window", "w", 0, "trailing bars to print (0 prints the full history)")
	cmd.Flags().StringP("indicators", "i", "", "indicator list, e.g. \"MACD:12:26:9,RSI:6,BOLL:20:2,MA:5\"")
	cmd.Flags().Bool("summary", false, "print the latest-bar summary instead of the series")
	cmd.Flags().Bool("pretty", false, "indent the JSON output")
	return cmd
}

func runCalc(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	file, _ := flags.GetString("file")
	window, _ := flags.GetInt("window")
	spec, _ := flags.GetString("indicators")
	summary, _ := flags.GetBool("summary")
	pretty, _ := flags.GetBool("pretty")

	if window < 0 {
		return fmt.Errorf("--window=%d must not be negative", window)
	}
	params, err := indicator.ParseParams(spec)
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	closes, err := readCloses(in)
	if err != nil {
		return err
	}
	if err := gateway.ValidateCloses(closes); err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	if pretty {
		enc.SetIndent("", "  ")
	}
	if summary {
		s, err := indicator.SummarizeChecked(closes, params)
		if err != nil {
			return err
		}
		if !s.Finite() {
			return errOverflow
		}
		return enc.Encode(s)
	}
	o := indicator.ComputeOverlay(closes, params, window)
	if !o.Finite() {
		return errOverflow
	}
	return enc.Encode(o)
}

var errOverflow = errors.New("closes overflow the indicator range")

// readCloses accepts a JSON array of numbers or plain numbers separated by
// whitespace and/or commas.
func readCloses(r io.Reader) ([]float64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read closes: %w", err)
	}
	data = bytes.TrimSpace(data)

	if bytes.HasPrefix(data, []byte("[")) {
		var closes []float64
		if err := json.Unmarshal(data, &closes); err != nil {
			return nil, fmt.Errorf("decode closes: %w", err)
		}
		return closes, nil
	}

	fields := strings.FieldsFunc(string(data), func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	closes := make([]float64, 0, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("close #%d %q: not a number", i+1, f)
		}
		closes = append(closes, v)
	}
	return closes, nil
}
