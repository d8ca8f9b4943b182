package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"nwpfetch/internal/lib"
)

// Converter turns one run's raw grib files into a single intermediate
// netCDF artifact. Implementations are external collaborators; a failure
// means the inputs are malformed and is never retried.
type Converter interface {
	// Convert processes every raw file in dir whose name starts with
	// rawPrefix and returns the path of the intermediate artifact it
	// created inside dir. mode is a source-specific processing flag,
	// empty for the default.
	Convert(ctx context.Context, dir, rawPrefix, mode string) (string, error)
}

// gribToNetCDF drives wgrib2: wind speed is derived from the U/V
// components and appended, then all grib files are concatenated into one
// netCDF file using the variable table below.
const gribToNetCDF = `#!/usr/bin/env bash
set -e

FOLDER=$1
NCFILENAME=$2
GRIBPREFIX=$3
AVGFMT="${4:-}"

pushd $FOLDER > /dev/null

nctbl=$(mktemp -p . nc.tbl.XXXX)

function finish {
   rm $nctbl
   popd > /dev/null
}

trap finish EXIT

cat <<EOF > $nctbl
TMP:surface:ignore
TMP:2 m above ground:t2m
UGRD:10 m above ground:ignore
VGRD:10 m above ground:ignore
TCDC:entire atmosphere:tcdc
TCDC:entire atmosphere (considered as a single layer):tcdc
DSWRF:surface:dswrf
VBDSF:surface:vbdsf
VDDSF:surface:vddsf
WIND:10 m above ground:si10
EOF

for file in $(ls -1 $GRIBPREFIX*.grib2); do
    wgrib2 $file -wind_speed - -match "(UGRD|VGRD)" | \
        wgrib2 - -append -grib_out $file;
    done;

cat $GRIBPREFIX*.grib2 | \
    wgrib2 - -nc4 -nc_table $nctbl $AVGFMT -append -netcdf $NCFILENAME
`

// WgribConverter shells out to wgrib2 via the embedded script.
type WgribConverter struct {
	logger *lib.Logger
}

// NewWgribConverter creates the default converter.
func NewWgribConverter(logger *lib.Logger) *WgribConverter {
	return &WgribConverter{logger: logger}
}

// CheckWgrib2 verifies that the wgrib2 binary is on PATH. Called at
// startup so a missing tool fails before any polling begins.
func CheckWgrib2() error {
	if _, err := exec.LookPath("wgrib2"); err != nil {
		return fmt.Errorf("wgrib2 was not found in PATH and is required")
	}
	return nil
}

// Convert runs the conversion script over the run directory and returns
// the intermediate netCDF path. The intermediate is removed on failure.
func (c *WgribConverter) Convert(ctx context.Context, dir, rawPrefix, mode string) (string, error) {
	ncTmp, err := os.CreateTemp(dir, "nc")
	if err != nil {
		return "", fmt.Errorf("failed to create intermediate file: %w", err)
	}
	ncPath := ncTmp.Name()
	if err := ncTmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close intermediate file: %w", err)
	}

	script, err := os.CreateTemp("", "grib2nc*.sh")
	if err != nil {
		return "", fmt.Errorf("failed to write conversion script: %w", err)
	}
	defer func() { _ = os.Remove(script.Name()) }()
	if _, err := script.WriteString(gribToNetCDF); err != nil {
		_ = script.Close()
		return "", fmt.Errorf("failed to write conversion script: %w", err)
	}
	if err := script.Close(); err != nil {
		return "", fmt.Errorf("failed to write conversion script: %w", err)
	}

	c.logger.Info("Converting raw files to NetCDF", "dir", dir, "prefix", rawPrefix)

	cmd := exec.CommandContext(ctx, "bash", script.Name(), dir, ncPath, rawPrefix, mode)
	var stderr bytes.Buffer
	cmd.Stdout = nil
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.Remove(ncPath)
		return "", lib.ErrConversionFailed(dir, stderr.String(), err)
	}

	c.logger.Debug("Conversion finished", "artifact", filepath.Base(ncPath))
	return ncPath, nil
}
