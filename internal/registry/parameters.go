package registry

import "github.com/labseries-server/internal/domain"

// builtinParameters is the authoritative in-code source of truth for metric
// definitions. Normal ranges are adult reference intervals; critical ranges
// are the outer bounds of physical plausibility used to catch gross unit or
// extraction errors.
func builtinParameters() []*domain.MetricParameter {
	return []*domain.MetricParameter{
		{
			Name:          "ALT",
			Aliases:       []string{"SGPT", "Alanine Aminotransferase", "Alanine Transaminase", "ALT (SGPT)"},
			StandardUnit:  "U/L",
			NormalRange:   domain.Range{Min: 7, Max: 56},
			CriticalRange: domain.Range{Min: 1, Max: 5000},
			Category:      "liver",
			Conversions: []domain.UnitConversion{
				{Aliases: []string{"iu/l", "units/l", "u/l"}, Factor: 1.0, Rule: "iu_equivalent"},
			},
		},
		{
			Name:          "AST",
			Aliases:       []string{"SGOT", "Aspartate Aminotransferase", "Aspartate Transaminase", "AST (SGOT)"},
			StandardUnit:  "U/L",
			NormalRange:   domain.Range{Min: 10, Max: 40},
			CriticalRange: domain.Range{Min: 1, Max: 5000},
			Category:      "liver",
			Conversions: []domain.UnitConversion{
				{Aliases: []string{"iu/l", "units/l", "u/l"}, Factor: 1.0, Rule: "iu_equivalent"},
			},
		},
		{
			Name:          "Total Bilirubin",
			Aliases:       []string{"Bilirubin", "Bilirubin Total", "T. Bilirubin", "TBIL"},
			StandardUnit:  "mg/dL",
			NormalRange:   domain.Range{Min: 0.1, Max: 1.2},
			CriticalRange: domain.Range{Min: 0.05, Max: 50},
			Category:      "liver",
			Conversions: []domain.UnitConversion{
				{Aliases: []string{"umol/l", "µmol/l", "micromol/l"}, Factor: 1.0 / 17.1, Rule: "umol_per_l_to_mg_per_dl"},
			},
		},
		{
			Name:          "Albumin",
			Aliases:       []string{"Serum Albumin", "ALB"},
			StandardUnit:  "g/dL",
			NormalRange:   domain.Range{Min: 3.4, Max: 5.4},
			CriticalRange: domain.Range{Min: 0.5, Max: 10},
			Category:      "liver",
			Conversions: []domain.UnitConversion{
				{Aliases: []string{"g/l"}, Factor: 0.1, Rule: "g_per_l_to_g_per_dl"},
			},
		},
		{
			Name:          "Creatinine",
			Aliases:       []string{"Serum Creatinine", "Creat", "CREA"},
			StandardUnit:  "mg/dL",
			NormalRange:   domain.Range{Min: 0.6, Max: 1.3},
			CriticalRange: domain.Range{Min: 0.1, Max: 25},
			Category:      "kidney",
			Conversions: []domain.UnitConversion{
				{Aliases: []string{"umol/l", "µmol/l", "micromol/l"}, Factor: 1.0 / 88.4, Rule: "umol_per_l_to_mg_per_dl"},
			},
		},
		{
			Name:          "INR",
			Aliases:       []string{"PT INR", "Prothrombin INR", "International Normalized Ratio"},
			StandardUnit:  "ratio",
			NormalRange:   domain.Range{Min: 0.8, Max: 1.2},
			CriticalRange: domain.Range{Min: 0.5, Max: 10},
			Category:      "coagulation",
		},
		{
			Name:          "Platelets",
			Aliases:       []string{"Platelet Count", "PLT", "Thrombocytes"},
			StandardUnit:  "10^9/L",
			NormalRange:   domain.Range{Min: 150, Max: 450},
			CriticalRange: domain.Range{Min: 10, Max: 1000},
			Category:      "hematology",
			Conversions: []domain.UnitConversion{
				{Aliases: []string{"/ul", "/µl", "/cumm", "/cmm", "/mm3", "per ul", "cells/ul", "cells/cumm"}, Factor: 0.001, Rule: "per_ul_to_10e9_per_l"},
				{Aliases: []string{"lakhs/cumm", "lakh/cumm", "lacs/cumm", "lakhs/ul", "lakhs/µl"}, Factor: 100, Rule: "lakhs_per_cumm_to_10e9_per_l"},
				{Aliases: []string{"10^3/ul", "10^3/µl", "x10^3/ul", "k/ul", "k/µl", "thousand/ul", "thou/ul"}, Factor: 1.0, Rule: "10e3_per_ul_equivalent"},
			},
		},
		{
			Name:          "WBC",
			Aliases:       []string{"White Blood Cells", "WBC Count", "Total Leukocyte Count", "TLC", "Leukocytes"},
			StandardUnit:  "10^9/L",
			NormalRange:   domain.Range{Min: 4.5, Max: 11},
			CriticalRange: domain.Range{Min: 0.1, Max: 500},
			Category:      "hematology",
			Conversions: []domain.UnitConversion{
				{Aliases: []string{"/ul", "/µl", "/cumm", "/cmm", "/mm3", "cells/ul", "cells/cumm"}, Factor: 0.001, Rule: "per_ul_to_10e9_per_l"},
				{Aliases: []string{"10^3/ul", "10^3/µl", "x10^3/ul", "k/ul", "k/µl", "thousand/ul"}, Factor: 1.0, Rule: "10e3_per_ul_equivalent"},
			},
		},
		{
			Name:          "Hemoglobin",
			Aliases:       []string{"Hb", "Hgb", "Haemoglobin"},
			StandardUnit:  "g/dL",
			NormalRange:   domain.Range{Min: 12, Max: 17.5},
			CriticalRange: domain.Range{Min: 2, Max: 25},
			Category:      "hematology",
			Conversions: []domain.UnitConversion{
				{Aliases: []string{"g/l"}, Factor: 0.1, Rule: "g_per_l_to_g_per_dl"},
				{Aliases: []string{"mmol/l"}, Factor: 1.611, Rule: "mmol_per_l_to_g_per_dl"},
			},
		},
		{
			Name:          "Glucose",
			Aliases:       []string{"Blood Glucose", "Blood Sugar", "Fasting Glucose", "FBS", "Random Blood Sugar", "RBS"},
			StandardUnit:  "mg/dL",
			NormalRange:   domain.Range{Min: 70, Max: 100},
			CriticalRange: domain.Range{Min: 10, Max: 1500},
			Category:      "metabolic",
			Conversions: []domain.UnitConversion{
				{Aliases: []string{"mmol/l"}, Factor: 18.016, Rule: "mmol_per_l_to_mg_per_dl"},
			},
		},
		{
			Name:          "Sodium",
			Aliases:       []string{"Na", "Serum Sodium", "Na+"},
			StandardUnit:  "mmol/L",
			NormalRange:   domain.Range{Min: 135, Max: 145},
			CriticalRange: domain.Range{Min: 100, Max: 180},
			Category:      "electrolytes",
			Conversions: []domain.UnitConversion{
				{Aliases: []string{"meq/l"}, Factor: 1.0, Rule: "meq_equivalent"},
			},
		},
		{
			Name:          "Potassium",
			Aliases:       []string{"K", "Serum Potassium", "K+"},
			StandardUnit:  "mmol/L",
			NormalRange:   domain.Range{Min: 3.5, Max: 5.1},
			CriticalRange: domain.Range{Min: 1, Max: 10},
			Category:      "electrolytes",
			Conversions: []domain.UnitConversion{
				{Aliases: []string{"meq/l"}, Factor: 1.0, Rule: "meq_equivalent"},
			},
		},
	}
}
