/*
Copyright © 2019 the ShelfMelt authors.
This file is part of ShelfMelt.

ShelfMelt is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

ShelfMelt is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with ShelfMelt.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package shelfmeltutil holds the configuration and command-line interface
// of the shelfmelt model.
package shelfmeltutil

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lnashier/viper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cryomodel/shelfmelt"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to the model.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "GeometryFile",
			usage: `
              GeometryFile is the path to the NetCDF file holding the ice
              geometry and the label masks: ice_thickness, cell_type, basins,
              shelf_mask, box_mask and contshelf_mask. It may be a local path
              or an http:// or https:// URL.`,
			defaultVal: "geometry.nc",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "ForcingFile",
			usage: `
              ForcingFile is the path to the NetCDF file holding the
              theta_ocean and salinity_ocean forcing time series. It may be a
              local path or an http:// or https:// URL.`,
			defaultVal: "forcing.nc",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "PeriodicForcing",
			usage: `
              PeriodicForcing specifies whether the forcing time series is
              one climatological cycle to be repeated outside its time range.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "ForcingTime",
			usage: `
              ForcingTime is the time, in the units of the forcing file's
              time coordinate, at which the forcing is evaluated.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path where the NetCDF output will be saved.`,
			defaultVal: "output.nc",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables maps names of output variables to the
              expressions defining how they should be calculated from the
              model diagnostics.`,
			defaultVal: map[string]string{
				"basal_melt_rate":   "basal_melt_rate",
				"basal_temperature": "basal_temperature",
				"temperature":       "temperature",
				"salinity":          "salinity",
				"overturning":       "overturning",
			},
			flagsets: []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the simulation log file. If not given,
              the log is written next to the output file.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "SaveFile",
			usage: `
              SaveFile, if given, is the path where the model state will be
              saved in gob format after the run.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "NumBoxes",
			usage: `
              NumBoxes is the maximum number of ocean boxes per ice shelf.`,
			defaultVal: 5,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "NumRanks",
			usage: `
              NumRanks is the number of parallel workers the grid is
              decomposed over. Results do not depend on this number.`,
			shorthand:  "n",
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Grid.Dx",
			usage: `
              Grid.Dx is the grid cell length in the x direction [m].`,
			defaultVal: 1000.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Grid.Dy",
			usage: `
              Grid.Dy is the grid cell length in the y direction [m].`,
			defaultVal: 1000.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Physics.GammaT",
			usage: `
              Physics.GammaT is the turbulent heat exchange velocity across
              the ice-ocean boundary layer [m s-1].`,
			defaultVal: 2.0e-5,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Physics.OverturningCoeff",
			usage: `
              Physics.OverturningCoeff is the strength of the cavity
              overturning circulation [m6 s-1 kg-1].`,
			defaultVal: 1.0e6,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Physics.ContinentalShelfDepth",
			usage: `
              Physics.ContinentalShelfDepth bounds the ocean region
              contributing to the basin averages [m].`,
			defaultVal: 800.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Physics.TDummy",
			usage: `
              Physics.TDummy is the substitute ocean temperature [K] for
              basins without usable forcing data.`,
			defaultVal: 271.65,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Physics.SDummy",
			usage: `
              Physics.SDummy is the substitute ocean salinity [psu] for
              basins without usable forcing data.`,
			defaultVal: 34.7,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Physics.MeltFactor",
			usage: `
              Physics.MeltFactor scales the heat-flux melt parameterization
              used outside the box model.`,
			defaultVal: 0.005,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Physics.IceDensity",
			usage: `
              Physics.IceDensity is the ice density [kg m-3].`,
			defaultVal: 910.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Physics.SeaWaterDensity",
			usage: `
              Physics.SeaWaterDensity is the sea water density [kg m-3].`,
			defaultVal: 1028.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("SHELFMELT")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(b.Bytes())
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("shelfmelt: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "shelfmelt",
	Short: "A sub-ice-shelf melt box model.",
	Long: `shelfmelt computes the melt rate under ice shelves from far-field
ocean temperature and salinity, using a box model of the overturning
circulation in the sub-shelf cavity.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'SHELFMELT_var' where 'var'
is the name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration
information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of shelfmelt.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("shelfmelt v%s\n", shelfmelt.Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compute one melt field from the configured inputs.",
	Long: `run reads the geometry, labels and ocean forcing, runs the melt
model once, and writes the requested output variables to a NetCDF file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		outputVars, err := checkOutputVars(GetStringMapString("OutputVariables", Cfg))
		if err != nil {
			return err
		}
		pcfg, err := physicsConfig(Cfg)
		if err != nil {
			return err
		}
		return Run(cmd, &RunConfig{
			LogFile:         checkLogFile(Cfg.GetString("LogFile"), outputFile),
			OutputFile:      outputFile,
			OutputVariables: outputVars,
			SaveFile:        Cfg.GetString("SaveFile"),
			GeometryFile:    Cfg.GetString("GeometryFile"),
			ForcingFile:     Cfg.GetString("ForcingFile"),
			PeriodicForcing: Cfg.GetBool("PeriodicForcing"),
			ForcingTime:     Cfg.GetFloat64("ForcingTime"),
			NumBoxes:        Cfg.GetInt("NumBoxes"),
			NumRanks:        Cfg.GetInt("NumRanks"),
			Dx:              Cfg.GetFloat64("Grid.Dx"),
			Dy:              Cfg.GetFloat64("Grid.Dy"),
			Physics:         pcfg,
		})
	},
	DisableAutoGenTag: true,
}
