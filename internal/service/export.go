package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/N-Erickson/DigitalOcean-Billing-Dashboard/internal/billing"
)

// WriteBucketsCSV writes one row per bucket with the dimension as the label
// column header.
func WriteBucketsCSV(w io.Writer, dimension string, buckets []billing.Bucket) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{dimension, "total_usd"}); err != nil {
		return err
	}
	for _, b := range buckets {
		if err := cw.Write([]string{b.Label, formatCSVAmount(b.Total)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSeriesCSV writes the monthly series in chronological order as given.
func WriteSeriesCSV(w io.Writer, series []billing.MonthPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"month", "total_usd"}); err != nil {
		return err
	}
	for _, p := range series {
		if err := cw.Write([]string{p.Label, formatCSVAmount(p.Total)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportFile creates path and hands the writer to write. The file is removed
// again when write fails so a bad export never leaves a partial file behind.
func ExportFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

func formatCSVAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
