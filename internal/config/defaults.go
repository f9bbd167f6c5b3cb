package config

import "github.com/talgya/vintner/internal/curve"

// Default returns the stock session: a 6×4 vineyard, Bordeaux-like weather,
// two days of real time per in-game day and a 360-day arcade year.
func Default() *Config {
	return &Config{
		Seed: 12345,
		World: World{
			VineyardCols: 6,
			VineyardRows: 4,
			StartOwned:   2,
		},
		Economy: Economy{
			StartingCash:         50000,
			LandBasePrice:        3000,
			PlantCostPerPlot:     800,
			SmallTankPrice:       5000,
			MediumTankPrice:      12000,
			LargeTankPrice:       25000,
			BarrelPrice:          900,
			BottlingMachinePrice: 10000,
			GrapeWholesalePerKg:  1.2,
		},
		Market: Market{
			IndexMin:          0.8,
			IndexMax:          1.2,
			StepMax:           0.01,
			BrandMin:          0.5,
			BrandMax:          2.0,
			ReviewNeutral:     70,
			PriceLow:          5,
			PriceHigh:         120,
			PremiumVarieties:  []string{"Pinot Noir", "Cabernet Sauvignon"},
			PremiumMultiplier: 1.1,
			RedMultiplier:     1.05,
		},
		Time: Time{
			SecondsPerDay:         2,
			DaysPerYear:           360,
			OfflineCatchupCapDays: 30,
		},
		Vineyard: Vineyard{
			SummerBrixPerDayMin:      0.10,
			SummerBrixPerDayMax:      0.40,
			RainBrixPenalty:          0.15,
			RainThresholdMm:          1.0,
			YieldPerPlotKg:           1200,
			PHDailyDeltaTowardTarget: 0.02,
			PhenolicDailyGain:        0.8,
			ColorDailyGain:           0.6,
			AromaDailyGain:           0.5,
			SoilWaterCapacityMm:      60,
			AcidLossPerDay:           0.05,
			HailYieldLoss:            0.15,
			FrostYieldLoss:           0.10,
			DefaultLitersPerKg:       0.70,
		},
		Fermentation: Fermentation{
			MinDays:        7,
			MaxDays:        14,
			BrixToAlcohol:  0.55,
			StuckBrixFloor: 2,
			DoneBrix:       1,
			CraftBaseline:  10,
		},
		Aging: Aging{
			BarrelVolumeL:          225,
			OakGainPerDay:          0.15,
			OverUnderPenaltyPerDay: 0.2,
			SweetSpotDaysMin:       120,
			SweetSpotDaysMax:       240,
			CenterBonus:            0.25,
			BaseQuality:            50,
		},
		Bottling: Bottling{
			BottleSizeMl:       750,
			ImprovementPerDay:  0.02,
			WhiteDegradePerDay: 0.01,
		},
		Weather:   DefaultWeather(),
		Varieties: DefaultVarieties(),
		Yeasts:    DefaultYeasts(),
	}
}

// DefaultWeather is the Bordeaux preset: smooth year curves, no monthly data.
func DefaultWeather() Weather {
	return Weather{
		TempYear:  []curve.Point{{T: 0, V: 8}, {T: 0.25, V: 20}, {T: 0.5, V: 23}, {T: 0.75, V: 14}, {T: 1, V: 8}},
		RainYear:  []curve.Point{{T: 0, V: 3.7}, {T: 0.25, V: 2.2}, {T: 0.5, V: 1.7}, {T: 0.75, V: 3.1}, {T: 1, V: 3.7}},
		HumYear:   []curve.Point{{T: 0, V: 85}, {T: 0.25, V: 76}, {T: 0.5, V: 68}, {T: 0.75, V: 78}, {T: 1, V: 86}},
		SolarYear: []curve.Point{{T: 0, V: 7}, {T: 0.25, V: 14}, {T: 0.5, V: 20}, {T: 0.75, V: 12}, {T: 1, V: 7}},
		WindYear:  []curve.Point{{T: 0, V: 12}, {T: 0.25, V: 12}, {T: 0.5, V: 10}, {T: 0.75, V: 12}, {T: 1, V: 12}},

		DayNoise:                 0.35,
		ET0Coef:                  0.8,
		FrostProbSpring:          0.02,
		FrostProbAutumn:          0.01,
		HeatwaveProbSummer:       0.015,
		HailProb:                 0.002,
		StormProb:                0.01,
		RainIntensityMm:          8,
		RainIntensitySeasonality: 0.35,
		StormRainMm:              12,
		MildewHumThresh:          85,
		MildewTempBand:           [2]float64{18, 26},
		MildewBaselineWeight:     0.3,
	}
}

// DefaultVarieties is the stock grape catalog.
func DefaultVarieties() []Variety {
	return []Variety{
		{
			Name: "Cabernet Sauvignon", IsRed: true,
			TargetHarvestBrix: 24, TargetPH: 3.6, MinHarvestPhenolic: 75,
			SweetSpotStart: 120, SweetSpotEnd: 210,
			BottleImproveDays: 150, TerroirBonus: 3,
		},
		{
			Name: "Pinot Noir", IsRed: true,
			TargetHarvestBrix: 23, TargetPH: 3.5, MinHarvestPhenolic: 70,
			SweetSpotStart: 90, SweetSpotEnd: 150,
			BottleImproveDays: 120, TerroirBonus: 3,
		},
		{
			Name: "Chardonnay", IsRed: false,
			TargetHarvestBrix: 22, TargetPH: 3.4, MinHarvestPhenolic: 60,
			SweetSpotStart: 60, SweetSpotEnd: 120,
			BottleWhiteDegradeStart: 90, TerroirBonus: 2,
		},
		{
			Name: "Sauvignon Blanc", IsRed: false,
			TargetHarvestBrix: 21.5, TargetPH: 3.3, MinHarvestPhenolic: 55,
			SweetSpotStart: 45, SweetSpotEnd: 100,
			BottleWhiteDegradeStart: 80, TerroirBonus: 2,
		},
	}
}

// DefaultYeasts is the stock yeast catalog. The first entry is the fallback
// strain when a harvest names none.
func DefaultYeasts() []Yeast {
	return []Yeast{
		{Name: "Neutral", Speed: 1.0, Aroma: 0, ToleranceABV: 15},
		{Name: "Aromatic", Speed: 0.9, Aroma: 3, ToleranceABV: 14},
		{Name: "Robust", Speed: 1.2, Aroma: 1, ToleranceABV: 16},
	}
}
