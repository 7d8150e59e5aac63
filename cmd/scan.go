package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/spf13/cobra"

	"puck-scanner/config"
	"puck-scanner/internal/container"
	"puck-scanner/internal/domain/entity"
	"puck-scanner/internal/domain/geometry"
)

var (
	scanPlate string
	scanSizes []int
	scanOut   string
)

var scanCmd = &cobra.Command{
	Use:   "scan FILE...",
	Short: "Распознать держатели на снимках",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanPlate, "plate", string(geometry.KindUnipuck), "plate type: unipuck or unconstrained")
	scanCmd.Flags().IntSliceVar(&scanSizes, "sizes", []int{14}, "barcode sizes in modules")
	scanCmd.Flags().StringVarP(&scanOut, "out", "o", "", "directory for highlighted images")
}

func runScan(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	kind, err := geometry.ParseKind(scanPlate)
	if err != nil {
		return err
	}

	c, err := container.New(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to build services: %v", err)
	}
	defer c.Close()

	if scanOut != "" {
		if err := os.MkdirAll(scanOut, 0o755); err != nil {
			return err
		}
	}

	var failed int
	for _, path := range args {
		// Каждый файл отдельный держатель.
		still := c.NewStillService(kind, scanSizes)

		img, err := imaging.Open(path)
		if err != nil {
			logger.Error("scan: failed to open image", "path", path, "error", err)
			failed++
			continue
		}
		out, err := still.Scan(cmd.Context(), img)
		if err != nil {
			if errors.Is(err, entity.ErrNoBarcodesDetected) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", path, mutedStyle.Render("держатель не найден"))
			} else {
				logger.Error("scan: failed", "path", path, "error", err)
			}
			failed++
			continue
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderReport(path, *out.Report))

		if scanOut != "" && len(out.Highlighted) > 0 {
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + "_plate.jpg"
			if err := os.WriteFile(filepath.Join(scanOut, name), out.Highlighted, 0o644); err != nil {
				logger.Error("scan: failed to save highlight", "path", path, "error", err)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(args))
	}
	return nil
}
