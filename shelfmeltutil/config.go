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

package shelfmeltutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spf13/cast"

	"github.com/cryomodel/shelfmelt/physics"
)

// checkOutputVars removes end lines and expands environment variables in the
// output variables.
func checkOutputVars(vars map[string]string) (map[string]string, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("there are no variables specified for output. Please fill in " +
			"the OutputVariables configuration and try again.")
	}
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		vars[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	return vars, nil
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expands any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="output.nc")`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("shelfmelt: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return logFile
}

// physicsConfig builds the physics constants from the configuration,
// starting from the defaults.
func physicsConfig(cfg *viper.Viper) (physics.Config, error) {
	p := physics.DefaultConfig()
	p.GammaT = cfg.GetFloat64("Physics.GammaT")
	p.OverturningCoeff = cfg.GetFloat64("Physics.OverturningCoeff")
	p.ContinentalShelfDepth = cfg.GetFloat64("Physics.ContinentalShelfDepth")
	p.TDummy = cfg.GetFloat64("Physics.TDummy")
	p.SDummy = cfg.GetFloat64("Physics.SDummy")
	p.MeltFactor = cfg.GetFloat64("Physics.MeltFactor")
	p.IceDensity = cfg.GetFloat64("Physics.IceDensity")
	p.SeaWaterDensity = cfg.GetFloat64("Physics.SeaWaterDensity")

	if p.GammaT <= 0 || p.OverturningCoeff <= 0 {
		return p, fmt.Errorf("shelfmelt: Physics.GammaT and Physics.OverturningCoeff must be positive")
	}
	if p.IceDensity <= 0 || p.SeaWaterDensity <= 0 {
		return p, fmt.Errorf("shelfmelt: densities must be positive")
	}
	return p, nil
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) map[string]string {
	i := cfg.Get(varName)
	switch i.(type) {
	case map[string]string:
		return i.(map[string]string)
	case map[string]interface{}:
		return cast.ToStringMapString(i)
	case string:
		b := bytes.NewBuffer(([]byte)(i.(string)))
		d := json.NewDecoder(b)
		o := make(map[string]string)
		if err := d.Decode(&o); err != nil {
			panic(err)
		}
		return o
	default:
		panic(fmt.Errorf("invalid type for GetStringMapString variable %s: %#v", varName, i))
	}
}
