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

// Package physics implements the closed-form thermodynamics of the ocean box
// model: pressure-melting points, the analytic box solutions of Olbers &
// Hellmer (2010) as used by Reese et al. (2018), and the Beckmann & Goosse
// (2003) parameterization. All functions are pure; the only state is the set
// of configuration constants.
package physics

import "math"

// Config holds the physical constants and tuning coefficients consumed by the
// melt model. The zero value is not usable; start from DefaultConfig.
type Config struct {
	IceDensity      float64 // kg m-3
	SeaWaterDensity float64 // kg m-3
	Gravity         float64 // m s-2

	// LatentHeat is the latent heat of fusion of ice [J kg-1] and
	// HeatCapacity the specific heat capacity of the ocean mixed layer
	// [J kg-1 K-1]; their ratio sets the thermal driving scale.
	LatentHeat   float64
	HeatCapacity float64

	// Pressure-melting point linearization: T = A*S + B - C*p, with B the
	// potential-temperature offset and BInSitu the in-situ one.
	A       float64 // K per psu
	B       float64 // K
	BInSitu float64 // K
	C       float64 // K per Pa

	// Equation-of-state linearization about the reference density RhoStar.
	Alpha   float64 // thermal expansion [K-1]
	Beta    float64 // haline contraction [psu-1]
	RhoStar float64 // kg m-3

	// GammaT is the turbulent heat exchange velocity across the ice-ocean
	// boundary layer [m s-1] and OverturningCoeff the strength C of the
	// cavity overturning circulation [m6 s-1 kg-1].
	GammaT           float64
	OverturningCoeff float64

	// MeltFactor scales the Beckmann-Goosse melt rate.
	MeltFactor float64

	// TDummy and SDummy substitute for basin averages that cannot be
	// computed from the forcing data.
	TDummy float64 // K
	SDummy float64 // psu

	// ContinentalShelfDepth bounds the ocean region contributing to basin
	// averages [m, positive downward].
	ContinentalShelfDepth float64

	// FreshWaterMeltingPoint is the melting point of fresh water at
	// atmospheric pressure [K] and ClausiusClapeyron its decrease per Pa
	// of overburden pressure.
	FreshWaterMeltingPoint float64
	ClausiusClapeyron      float64 // K Pa-1
}

// DefaultConfig returns the constants used by Reese et al. (2018) for the
// Antarctic setup.
func DefaultConfig() Config {
	return Config{
		IceDensity:      910.0,
		SeaWaterDensity: 1028.0,
		Gravity:         9.81,

		LatentHeat:   3.34e5,
		HeatCapacity: 3974.0,

		A:       -0.0572,
		B:       0.0788 + 273.15,
		BInSitu: 0.0832 + 273.15,
		C:       7.77e-8,

		Alpha:   7.5e-5,
		Beta:    7.7e-4,
		RhoStar: 1033.0,

		GammaT:           2e-5,
		OverturningCoeff: 1e6,

		MeltFactor: 0.005,

		TDummy: -1.5 + 273.15,
		SDummy: 34.7,

		ContinentalShelfDepth: 800.0,

		FreshWaterMeltingPoint: 273.15,
		ClausiusClapeyron:      7.9e-8,
	}
}

// Pico evaluates the box-model physics for a fixed set of constants.
type Pico struct {
	cfg Config

	// nu = ice density / sea water density; lambda = latent heat /
	// heat capacity. The product nu*lambda converts between temperature
	// differences and melt water fluxes.
	nu, lambda float64
}

// New creates a Pico physics evaluator from cfg.
func New(cfg Config) *Pico {
	return &Pico{
		cfg:    cfg,
		nu:     cfg.IceDensity / cfg.SeaWaterDensity,
		lambda: cfg.LatentHeat / cfg.HeatCapacity,
	}
}

// Pressure returns the ice overburden pressure [Pa] under ice of the given
// thickness [m].
func (p *Pico) Pressure(iceThickness float64) float64 {
	return p.cfg.IceDensity * p.cfg.Gravity * iceThickness
}

// ThetaPM returns the potential temperature [K] of the pressure-melting point
// for the given salinity [psu] and pressure [Pa].
func (p *Pico) ThetaPM(salinity, pressure float64) float64 {
	return p.cfg.A*salinity + p.cfg.B - p.cfg.C*pressure
}

// TPM returns the in-situ temperature [K] of the pressure-melting point for
// the given salinity [psu] and pressure [Pa].
func (p *Pico) TPM(salinity, pressure float64) float64 {
	return p.cfg.A*salinity + p.cfg.BInSitu - p.cfg.C*pressure
}

// TStar returns the thermal driving [K]: the difference between the
// pressure-melting point and the ambient temperature. It is negative when the
// ambient water is warmer than the local melting point.
func (p *Pico) TStar(salinity, temperature, pressure float64) float64 {
	return p.ThetaPM(salinity, pressure) - temperature
}

// Box1Temperature is the result of the analytic box-1 temperature solution.
// Failed reports that the discriminant of the quadratic was negative; in that
// case the square root was taken as zero and Value holds the corresponding
// fallback solution.
type Box1Temperature struct {
	Value  float64
	Failed bool
}

// TocBox1 solves the box-1 heat and salt balance for the ambient temperature,
// given the total box-1 area of the shelf [m2], the thermal driving tStar at
// this cell, and the box-0 boundary salinity and temperature. The solution
// can fail when tStar is positive (boundary water at or below the local
// melting point); the failure is reported, not fatal.
func (p *Pico) TocBox1(box1Area, tStar, salinity, temperature float64) Box1Temperature {
	g1 := box1Area * p.cfg.GammaT
	s1 := salinity / (p.nu * p.lambda)

	pCoeff := g1 / (p.cfg.OverturningCoeff * p.cfg.RhoStar * (p.cfg.Beta*s1 - p.cfg.Alpha))
	q := pCoeff * tStar

	discriminant := 0.25*pCoeff*pCoeff - q
	failed := false
	if discriminant < 0 {
		discriminant = 0
		failed = true
	}
	return Box1Temperature{
		Value:  temperature - (-0.5*pCoeff + math.Sqrt(discriminant)),
		Failed: failed,
	}
}

// SocBox1 returns the box-1 ambient salinity from the box-0 boundary values
// and the box-1 temperature.
func (p *Pico) SocBox1(temperature0, salinity0, temperature1 float64) float64 {
	return salinity0 - salinity0/(p.nu*p.lambda)*(temperature0-temperature1)
}

// Overturning returns the cavity overturning flux [m3 s-1] driven by the
// density difference between the box-0 boundary water and the box-1 water.
func (p *Pico) Overturning(salinity0, salinity1, temperature0, temperature1 float64) float64 {
	return p.cfg.OverturningCoeff * p.cfg.RhoStar *
		(p.cfg.Beta*(salinity0-salinity1) - p.cfg.Alpha*(temperature0-temperature1))
}

// Toc returns the ambient temperature of a box with index greater than one,
// given the box area [m2], the upstream box's average temperature and
// salinity, the local thermal driving, and the overturning flux carried
// forward from box 1.
func (p *Pico) Toc(boxArea, temperature, tStar, overturning, salinity float64) float64 {
	g1 := boxArea * p.cfg.GammaT
	g2 := g1 / (p.nu * p.lambda)

	return temperature + g1*tStar/(overturning+g1-g2*p.cfg.A*salinity)
}

// Soc returns the ambient salinity of a box with index greater than one.
func (p *Pico) Soc(salinity, temperature, toc float64) float64 {
	return salinity - salinity*(temperature-toc)/(p.nu*p.lambda)
}

// MeltRate returns the basal melt rate [m s-1] for the given pressure-melting
// point and ambient temperature. Positive values mean melting.
func (p *Pico) MeltRate(pmPoint, toc float64) float64 {
	return p.cfg.GammaT / (p.nu * p.lambda) * (toc - pmPoint)
}

// MeltRateBeckmannGoosse returns the melt rate [m s-1] of the Beckmann &
// Goosse (2003) parameterization for the given pressure-melting point and
// ambient temperature.
func (p *Pico) MeltRateBeckmannGoosse(pmPoint, toc float64) float64 {
	return p.cfg.MeltFactor * p.cfg.SeaWaterDensity * p.cfg.HeatCapacity * p.cfg.GammaT *
		(toc - pmPoint) / (p.cfg.LatentHeat * p.cfg.IceDensity)
}

// TDummy returns the substitute basin temperature [K] used when no forcing
// data is available.
func (p *Pico) TDummy() float64 { return p.cfg.TDummy }

// SDummy returns the substitute basin salinity [psu] used when no forcing
// data is available.
func (p *Pico) SDummy() float64 { return p.cfg.SDummy }

// GammaT returns the turbulent heat exchange velocity [m s-1].
func (p *Pico) GammaT() float64 { return p.cfg.GammaT }

// OverturningCoeff returns the overturning strength coefficient.
func (p *Pico) OverturningCoeff() float64 { return p.cfg.OverturningCoeff }

// ContinentalShelfDepth returns the depth bounding the continental shelf [m].
func (p *Pico) ContinentalShelfDepth() float64 { return p.cfg.ContinentalShelfDepth }

// IceDensity returns the ice density [kg m-3].
func (p *Pico) IceDensity() float64 { return p.cfg.IceDensity }

// FreshWaterMeltingPoint returns the melting point of fresh water at
// overburden pressure [Pa], following the Clausius-Clapeyron relation. It is
// used for floating ice that is not connected to the ocean.
func (p *Pico) FreshWaterMeltingPoint(pressure float64) float64 {
	return p.cfg.FreshWaterMeltingPoint - p.cfg.ClausiusClapeyron*pressure
}
