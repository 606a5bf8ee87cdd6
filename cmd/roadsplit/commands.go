package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roadsplit/roadsplit"
)

var splitCmd = &cobra.Command{
	Use:   "split [input] [output]",
	Short: "Segment a road collection into fixed-length pieces",
	Long: `Split reprojects the input collection into UTM zone 39N and cuts each
road into consecutive segments of at most the target length.

Examples:
  roadsplit split roads segments_2km
  roadsplit split -w ./data -l 0.5 roads segments_500m`,
	Args: cobra.ExactArgs(2),
	RunE: runSplit,
}

func runSplit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	s, err := roadsplit.NewSplitter(cfg)
	if err != nil {
		return err
	}

	length := segmentLength
	if length <= 0 {
		length = cfg.SegmentLengthKM
	}

	res, err := s.SplitRoads(args[0], args[1], length)
	if err != nil {
		return err
	}

	fmt.Printf("Created %d segments from %d roads in %.1fs\n", res.Segments, res.Roads, res.Elapsed.Seconds())
	fmt.Printf("Output: %s\n", s.Workspace().Path(res.Output))
	return nil
}

var importCmd = &cobra.Command{
	Use:   "import [file] [collection]",
	Short: "Import road centerlines into a workspace collection",
	Long: `Import loads road centerlines from a GeoJSON file or from a text file
of Google encoded polylines (one per line) into a WGS84 collection.

Examples:
  roadsplit import roads.geojson roads
  roadsplit import -f polyline routes.txt roads`,
	Args: cobra.ExactArgs(2),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ws, err := roadsplit.OpenWorkspace(cfg.Workspace)
	if err != nil {
		return err
	}

	format := importFormat
	if format == "" {
		switch strings.ToLower(filepath.Ext(args[0])) {
		case ".geojson", ".json":
			format = "geojson"
		default:
			format = "polyline"
		}
	}

	var stats *roadsplit.ImportStats
	switch format {
	case "geojson":
		stats, err = ws.ImportGeoJSON(args[0], args[1])
	case "polyline":
		stats, err = ws.ImportPolylines(args[0], args[1])
	default:
		return fmt.Errorf("unknown import format %q", format)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d roads (%.1f km) into %s\n", stats.Roads, stats.TotalKM, args[1])
	return nil
}

var exportCmd = &cobra.Command{
	Use:   "export [collection] [file.kml]",
	Short: "Export a collection as KML",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ws, err := roadsplit.OpenWorkspace(cfg.Workspace)
		if err != nil {
			return err
		}
		if err := ws.ExportKML(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Exported %s to %s\n", args[0], args[1])
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info [collection]",
	Short: "Show a collection's metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ws, err := roadsplit.OpenWorkspace(cfg.Workspace)
		if err != nil {
			return err
		}
		hdr, err := ws.ReadHeader(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Name:      %s\n", hdr.Name)
		fmt.Printf("Geometry:  %s\n", hdr.GeometryType)
		fmt.Printf("Features:  %d\n", hdr.FeaturesCount)
		if hdr.CRS != nil {
			fmt.Printf("CRS:       EPSG:%d %s\n", hdr.CRS.Code, hdr.CRS.Name)
		}
		if hdr.FeaturesCount > 0 {
			e := hdr.Envelope
			fmt.Printf("Envelope:  [%g %g %g %g]\n", e[0], e[1], e[2], e[3])
		}
		for _, col := range hdr.Columns {
			fmt.Printf("Column:    %s (%s)\n", col.Name, columnTypeName(col.Type))
		}
		return nil
	},
}

func columnTypeName(t roadsplit.ColumnType) string {
	switch t {
	case roadsplit.TypeInt:
		return "int"
	case roadsplit.TypeDouble:
		return "double"
	default:
		return "string"
	}
}
