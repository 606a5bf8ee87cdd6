// Roadsplit - road centerline segmentation tool
// Cuts polyline road collections into fixed-length segments after
// reprojecting them into a metric coordinate system.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roadsplit/roadsplit"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

// CLI flags
var (
	workspaceDir string
	configFile   string
	noOverwrite  bool

	// split flags
	segmentLength float64

	// import flags
	importFormat string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "roadsplit",
	Short: "Roadsplit - cut road centerlines into fixed-length segments",
	Long: `Roadsplit segments polyline road collections into consecutive pieces of
at most a target length (km). Roads are reprojected into UTM zone 39N
before cutting, so segment lengths are true metric arc lengths.

Collections are FlatGeobuf files inside a workspace directory.`,
	Version: fmt.Sprintf("%s (%s)", version, commit),
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workspaceDir, "workspace", "w", "", "workspace directory holding the collections")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVar(&noOverwrite, "no-overwrite", false, "fail instead of replacing an existing output collection")

	splitCmd.Flags().Float64VarP(&segmentLength, "length", "l", 0, "target segment length in km (default from config)")
	importCmd.Flags().StringVarP(&importFormat, "format", "f", "", "input format: geojson or polyline (default by extension)")

	rootCmd.AddCommand(splitCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(infoCmd)
}

// loadConfig resolves the effective configuration: file (when given)
// over defaults, then flags over the file.
func loadConfig() (roadsplit.Config, error) {
	cfg := roadsplit.DefaultConfig()
	if configFile != "" {
		var err error
		cfg, err = roadsplit.LoadConfig(configFile)
		if err != nil {
			return cfg, err
		}
	}
	if workspaceDir != "" {
		cfg.Workspace = workspaceDir
	}
	if noOverwrite {
		cfg.Overwrite = false
	}
	return cfg, nil
}
