package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mrops-br/inventory-scanner/internal/app/workflow"
	"github.com/mrops-br/inventory-scanner/internal/domain"
	"github.com/spf13/cobra"
)

var (
	scanImage  string
	scanSymbol string
	scanCommit bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan one image or barcode and optionally add it to the inventory",
	Example: `  scanner scan --image shelf.jpg
  scanner scan --symbol 8901063010283 --commit`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVarP(&scanImage, "image", "i", "", "Image file holding a barcode")
	scanCmd.Flags().StringVarP(&scanSymbol, "symbol", "s", "", "Barcode value to resolve without decoding")
	scanCmd.Flags().BoolVar(&scanCommit, "commit", false, "Add the resolved product to the inventory")
	scanCmd.MarkFlagsMutuallyExclusive("image", "symbol")
	scanCmd.MarkFlagsOneRequired("image", "symbol")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	app, err := newApplication(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.close(context.Background()); err != nil {
			app.logger.Error("Error during shutdown", "error", err.Error())
		}
	}()

	ctrl := workflow.NewController(uuid.New().String(), workflow.Deps{
		Source:    app.pipeline.Source,
		Decoder:   app.pipeline.Decoder,
		Resolver:  app.pipeline.Resolver,
		Committer: app.pipeline.Committer,
		Tracer:    app.tracer,
		Logger:    app.logger,
	})
	defer ctrl.Close(ctx)

	var st workflow.State
	if scanSymbol != "" {
		symbol, err := domain.ParseSymbol(scanSymbol)
		if err != nil {
			return err
		}
		st, err = ctrl.SymbolDetected(ctx, symbol)
		if err != nil {
			return err
		}
	} else {
		upload, err := readImageFile(scanImage)
		if err != nil {
			return err
		}
		st, err = ctrl.Upload(ctx, upload)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if st.Phase != workflow.PhaseResult {
		return scanFailure(st)
	}
	printRecord(out, st)

	if !scanCommit {
		return nil
	}
	st, err = ctrl.ConfirmCommit(ctx)
	if err != nil {
		return err
	}
	if st.Phase == workflow.PhaseError {
		return scanFailure(st)
	}
	fmt.Fprintln(out, st.Notice)
	return nil
}

func readImageFile(path string) (*domain.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return &domain.Upload{
		Name:        filepath.Base(path),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Data:        data,
	}, nil
}

func printRecord(w io.Writer, st workflow.State) {
	r := st.Record
	fmt.Fprintf(w, "UPC:      %s\n", r.Symbol)
	fmt.Fprintf(w, "Name:     %s\n", r.Name)
	fmt.Fprintf(w, "Brand:    %s\n", r.Brand)
	fmt.Fprintf(w, "Quantity: %s\n", r.QuantityLabel)
	if r.ImageURL != nil {
		fmt.Fprintf(w, "Image:    %s\n", *r.ImageURL)
	}
	fmt.Fprintf(w, "Source:   %s\n", st.Source)
}

func scanFailure(st workflow.State) error {
	if st.Message == "" {
		return errors.New(workflow.MessageScanFailed)
	}
	return fmt.Errorf("%s (%s)", st.Message, st.Error)
}
