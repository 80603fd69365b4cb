package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/stwalsh4118/addressmap/internal/services"
)

type runE func(fn func(cmd *cobra.Command, args []string, rt *toolEnv) error) func(*cobra.Command, []string) error

// systemActor is recorded for changes made by this tool without --actor.
const systemActor = "addrtool"

func newImportCmd(with runE) *cobra.Command {
	var (
		tag, file, columns, actor string
		skipHeader                bool
	)
	cmd := &cobra.Command{
		Use:   "import-addresses",
		Short: "Import a CSV or XLSX file of addresses as one tagged batch.",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, args []string, rt *toolEnv) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			var cols []string
			if columns != "" {
				cols = strings.Split(columns, ",")
			}
			out, err := rt.svc.Imports.Import(cmd.Context(), services.ImportRequest{
				Tag:        tag,
				Actor:      actor,
				Source:     filepath.Base(file),
				Format:     strings.TrimPrefix(strings.ToLower(filepath.Ext(file)), "."),
				Columns:    cols,
				SkipHeader: skipHeader,
			}, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "batch %q: %d saved, %d duplicates skipped\n", tag, out.Saved, out.Dupes)
			return nil
		}),
	}
	cmd.Flags().StringVar(&tag, "tag", "", "Batch tag; must be unused.")
	cmd.Flags().StringVar(&file, "file", "", "File to import (.csv or .xlsx).")
	cmd.Flags().StringVar(&columns, "columns", "", "Comma separated column names; blank names skip a column. Defaults to IMPORT_CSV_COLUMNS.")
	cmd.Flags().BoolVar(&skipHeader, "skip-header", false, "Skip the first row.")
	cmd.Flags().StringVar(&actor, "actor", systemActor, "User recorded as the importer.")
	_ = cmd.MarkFlagRequired("tag")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newLoadParcelsCmd(with runE) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "load-parcels",
		Short: "Replace every parcel with the features of a GeoJSON file.",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, args []string, rt *toolEnv) error {
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			progress := func(done, total int) {
				fmt.Fprintf(cmd.ErrOrStderr(), "\rloaded %d/%d", done, total)
				if done == total {
					fmt.Fprintln(cmd.ErrOrStderr())
				}
			}
			n, err := rt.svc.Parcels.LoadGeoJSON(cmd.Context(), f, time.Now().UTC(), progress)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d parcels loaded\n", n)
			return nil
		}),
	}
	cmd.Flags().StringVar(&file, "file", "", "GeoJSON FeatureCollection of parcels.")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newTestAddressesCmd(with runE) *cobra.Command {
	var city, state string
	cmd := &cobra.Command{
		Use:   "create-test-addresses N",
		Short: "Create N numbered test addresses in a new batch.",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(cmd *cobra.Command, args []string, rt *toolEnv) error {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("N must be a positive integer, got %q", args[0])
			}

			var src bytes.Buffer
			for i := 1; i <= n; i++ {
				fmt.Fprintf(&src, "%d Test St,%s,%s\n", i, city, state)
			}
			tag := "test-" + uuid.NewString()
			out, err := rt.svc.Imports.Import(cmd.Context(), services.ImportRequest{
				Tag:     tag,
				Actor:   systemActor,
				Source:  "generated",
				Columns: []string{"street", "city", "state"},
			}, &src)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "batch %q: %d saved, %d duplicates skipped\n", tag, out.Saved, out.Dupes)
			return nil
		}),
	}
	cmd.Flags().StringVar(&city, "city", "Testville", "City of the generated addresses.")
	cmd.Flags().StringVar(&state, "state", "TX", "State of the generated addresses.")
	return cmd
}
