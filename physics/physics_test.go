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

package physics

import (
	"math"
	"testing"
)

const testTolerance = 1.e-12

func TestMeltingPoints(t *testing.T) {
	p := New(DefaultConfig())

	// At zero pressure and zero salinity the potential and in-situ melting
	// points reduce to their salinity offsets.
	if got, want := p.ThetaPM(0, 0), 0.0788+273.15; math.Abs(got-want) > testTolerance {
		t.Errorf("ThetaPM(0,0)=%g; want %g", got, want)
	}
	if got, want := p.TPM(0, 0), 0.0832+273.15; math.Abs(got-want) > testTolerance {
		t.Errorf("TPM(0,0)=%g; want %g", got, want)
	}

	// Saltier and deeper water both freeze at lower temperatures.
	if p.ThetaPM(35, 0) >= p.ThetaPM(34, 0) {
		t.Error("melting point should decrease with salinity")
	}
	pressure := p.Pressure(1000)
	if p.ThetaPM(34, pressure) >= p.ThetaPM(34, 0) {
		t.Error("melting point should decrease with pressure")
	}
	if pressure <= 0 {
		t.Errorf("Pressure(1000)=%g; want positive", pressure)
	}
}

func TestTStarSign(t *testing.T) {
	p := New(DefaultConfig())

	// Ambient water warmer than the local melting point gives negative
	// thermal driving.
	warm := p.ThetaPM(34.7, 0) + 1
	if ts := p.TStar(34.7, warm, 0); ts >= 0 {
		t.Errorf("TStar=%g for warm water; want negative", ts)
	}
	cold := p.ThetaPM(34.7, 0) - 1
	if ts := p.TStar(34.7, cold, 0); ts <= 0 {
		t.Errorf("TStar=%g for cold water; want positive", ts)
	}
}

func TestTocBox1(t *testing.T) {
	p := New(DefaultConfig())
	const (
		area        = 1e8 // m2
		salinity    = 34.7
		temperature = 273.15 + 1
	)

	// Warm boundary water: the solution exists and the box-1 temperature
	// lies below the boundary temperature (heat is lost to melting).
	tStar := p.TStar(salinity, temperature, p.Pressure(500))
	res := p.TocBox1(area, tStar, salinity, temperature)
	if res.Failed {
		t.Fatal("TocBox1 failed for warm boundary water")
	}
	if res.Value >= temperature {
		t.Errorf("box-1 temperature %g should be below boundary temperature %g",
			res.Value, temperature)
	}

	// Boundary water well below the melting point: positive thermal driving
	// large enough to make the discriminant negative.
	res = p.TocBox1(area, 10, salinity, temperature)
	if !res.Failed {
		t.Error("TocBox1 should report failure for strongly positive thermal driving")
	}
	// The fallback value treats the square root as zero and must be finite.
	if math.IsNaN(res.Value) || math.IsInf(res.Value, 0) {
		t.Errorf("fallback value %g is not finite", res.Value)
	}
}

func TestMeltRateSigns(t *testing.T) {
	p := New(DefaultConfig())
	pm := p.ThetaPM(34.7, p.Pressure(500))

	if rate := p.MeltRate(pm, pm+1); rate <= 0 {
		t.Errorf("MeltRate=%g for water above the melting point; want positive", rate)
	}
	if rate := p.MeltRate(pm, pm-1); rate >= 0 {
		t.Errorf("MeltRate=%g for water below the melting point; want negative (refreezing)", rate)
	}
	if rate := p.MeltRateBeckmannGoosse(pm, pm+1); rate <= 0 {
		t.Errorf("MeltRateBeckmannGoosse=%g for water above the melting point; want positive", rate)
	}
}

func TestOverturningSign(t *testing.T) {
	p := New(DefaultConfig())

	// Box-1 water that is fresher and warmer than the boundary water is
	// lighter, driving a positive overturning.
	q := p.Overturning(34.7, 34.5, 273.15, 273.65)
	if q <= 0 {
		t.Errorf("Overturning=%g; want positive for lighter box-1 water", q)
	}
}

func TestSocBox1Dilution(t *testing.T) {
	p := New(DefaultConfig())
	const (
		salinity0    = 34.7
		temperature0 = 273.15 + 1
	)
	// Cooling from the boundary to box 1 means melt water was added, so the
	// box-1 salinity must be lower.
	soc := p.SocBox1(temperature0, salinity0, temperature0-0.5)
	if soc >= salinity0 {
		t.Errorf("SocBox1=%g; want below boundary salinity %g", soc, salinity0)
	}
}

func TestFreshWaterMeltingPoint(t *testing.T) {
	p := New(DefaultConfig())
	if got, want := p.FreshWaterMeltingPoint(0), 273.15; math.Abs(got-want) > testTolerance {
		t.Errorf("FreshWaterMeltingPoint(0)=%g; want %g", got, want)
	}
	if p.FreshWaterMeltingPoint(p.Pressure(1000)) >= 273.15 {
		t.Error("melting point should decrease under overburden pressure")
	}
}
