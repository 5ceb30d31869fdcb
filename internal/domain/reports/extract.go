package reports

import "github.com/shopspring/decimal"

// checklistFromPayload fills the task, equipment and supply fields of a
// report from the submitted checklist form.
func checklistFromPayload(p Payload) ServiceTechReport {
	zero := decimal.Zero
	return ServiceTechReport{
		PoolVacuumed:                 Bool(p, "poolVacuumed", false),
		PoolBrushed:                  Bool(p, "poolBrushed", false),
		SkimmersEmpty:                Bool(p, "skimmersEmpty", false),
		TilesCleaned:                 Bool(p, "tilesCleaned", false),
		FurnitureArranged:            Bool(p, "furnitureArranged", false),
		CleanedStrainer:              Bool(p, "cleanedStrainer", false),
		BackwashFilters:              Bool(p, "backwashFilters", false),
		CleanedCartridges:            TriStateValue(p, "cleanedCartridges"),
		EmptyTrash:                   Bool(p, "emptyTrash", false),
		BroomBucketHoseDeck:          Bool(p, "broomBucketHoseDeck", false),
		FurnitureOrganized:           Bool(p, "furnitureOrganized", false),
		SkimWaterSurface:             Bool(p, "skimWaterSurface", false),
		CalibratedChemicalController: Bool(p, "calibratedChemicalController", false),

		Flowrate:       Decimal(p, "flowrate", zero),
		FilterPressure: Decimal(p, "filterPressure", zero),
		WaterTemp:      Decimal(p, "waterTemp", zero),
		ControllerORP:  Decimal(p, "controllerORP", zero),
		ControllerPH:   Decimal(p, "controllerPH", zero),

		NeedsChlorine:        Bool(p, "needsChlorine", false),
		NeedsAcid:            Bool(p, "needsAcid", false),
		NeedsTestKitReagents: Bool(p, "needsTestKitReagents", false),
		NeedsFilterParts:     Bool(p, "needsFilterParts", false),

		ReportSentTo:     String(p, "reportSentTo", ""),
		CustomerRating:   Int(p, "customerRating"),
		CustomerFeedback: String(p, "customerFeedback", ""),
	}
}

// readingFromPayload reads one entry of the readings list. Chlorine falls
// back to bromine.
func readingFromPayload(p Payload) ChemicalReading {
	chlorine := NullableDecimal(p, "chlorine")
	if chlorine == nil {
		chlorine = NullableDecimal(p, "bromine")
	}
	// Unknown names are kept as sent; the readings list never rejects.
	body, _ := CanonicalBodyOfWater(String(p, "bodyOfWater", DefaultBodyOfWater))
	return ChemicalReading{
		BodyOfWater:     body,
		ChlorineBromine: chlorine,
		PH:              NullableDecimal(p, "phLevel"),
		CalciumHardness: NullableDecimal(p, "calciumHardness"),
		TotalAlkalinity: NullableDecimal(p, "alkalinity"),
		CyanuricAcid:    NullableDecimal(p, "cyanuricAcid"),
		Salt:            NullableDecimal(p, "saltLevel"),
		Phosphates:      NullableDecimal(p, "phosphates"),
	}
}

func evaluationFromPayload(p Payload) SiteEvaluation {
	return SiteEvaluation{
		PoolOpen:              NullableBool(p, "poolOpen"),
		MainDrainVisible:      NullableBool(p, "mainDrainVisible"),
		AEDPresent:            NullableBool(p, "aedPresent"),
		RescueTubePresent:     NullableBool(p, "rescueTubePresent"),
		BackboardPresent:      NullableBool(p, "backboardPresent"),
		FirstAidKit:           NullableBool(p, "firstAidKit"),
		BloodbornePathogenKit: NullableBool(p, "bloodbornePathogenKit"),
		HazMatKit:             NullableBool(p, "hazMatKit"),
		GateFenceSecured:      NullableBool(p, "gateFenceSecured"),
		EmergencyPhoneWorking: NullableBool(p, "emergencyPhoneWorking"),

		StaffOnDuty:                    NullableBool(p, "staffOnDuty"),
		ScanningRotationDiscussed:      NullableBool(p, "scanningRotationDiscussed"),
		ZonesEstablished:               NullableBool(p, "zonesEstablished"),
		BreakTimeDiscussed:             NullableBool(p, "breakTimeDiscussed"),
		GateControlDiscussed:           NullableBool(p, "gateControlDiscussed"),
		CellphonePolicyDiscussed:       NullableBool(p, "cellphonePolicyDiscussed"),
		PumproomCleaned:                NullableBool(p, "pumproomCleaned"),
		BalancingChemicalsTestedLogged: NullableBool(p, "balancingChemicalsTestedLogged"),
		ClosingProceduresDiscussed:     NullableBool(p, "closingProceduresDiscussed"),

		StaffWearingUniform: NullableBool(p, "staffWearingUniform"),

		FacilityEntryProcedures: NullableBool(p, "facilityEntryProcedures"),
		MSDS:                    NullableBool(p, "msds"),
		SafetySuppliesNeeded:    NullableBool(p, "safetySuppliesNeeded"),

		Notes: String(p, "notes", ""),
	}
}
