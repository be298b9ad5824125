package attendance

import "fmt"

// ArrivalThresholds 到达分级阈值（作用于 ecart = 计划 - 实际）
type ArrivalThresholds struct {
	EarlyHorsPlage   int // 提前超过该值视为超出范围
	RetardAcceptable int // 不低于该值视为可接受
	RetardModere     int // 不低于该值视为中度迟到
}

// DepartureThresholds 离开分级阈值（作用于 ecart = 计划结束 - 实际）
type DepartureThresholds struct {
	PrematureCritique     int
	Anticipe              int
	HeuresSupAutoValidees int
	HeuresSupAValider     int
}

// ClassifyArrival 到达分级
//
//	ecart > 30          hors_plage_in
//	-5 <= ecart <= 30   arrivee_acceptable
//	-20 <= ecart < -5   retard_modere
//	ecart < -20         retard_critique
func ClassifyArrival(ecart int, th ArrivalThresholds) (AnomalyType, Severity) {
	switch {
	case ecart > th.EarlyHorsPlage:
		return TypeHorsPlageIn, SeverityHorsPlage
	case ecart >= th.RetardAcceptable:
		return TypeArriveeAcceptable, SeverityOK
	case ecart >= th.RetardModere:
		return TypeRetardModere, SeverityAttention
	default:
		return TypeRetardCritique, SeverityCritique
	}
}

// ClassifyDeparture 离开分级
//
//	ecart > 30           depart_premature_critique
//	15 <= ecart <= 30    depart_anticipe
//	0 <= ecart < 15      depart_acceptable
//	-30 <= ecart < 0     heures_sup_auto_validees
//	-90 <= ecart < -30   heures_sup_a_valider
//	ecart < -90          hors_plage_out_critique
func ClassifyDeparture(ecart int, th DepartureThresholds) (AnomalyType, Severity) {
	switch {
	case ecart > th.PrematureCritique:
		return TypeDepartPrematureCritique, SeverityCritique
	case ecart >= th.Anticipe:
		return TypeDepartAnticipe, SeverityAttention
	case ecart >= 0:
		return TypeDepartAcceptable, SeverityOK
	case ecart >= th.HeuresSupAutoValidees:
		return TypeHeuresSupAutoValidees, SeverityInfo
	case ecart >= th.HeuresSupAValider:
		return TypeHeuresSupAValider, SeverityAValider
	default:
		return TypeHorsPlageOutCritique, SeverityHorsPlage
	}
}

func arrivalDiscrepancy(seg PlannedSegment, actual int, th ArrivalThresholds) Discrepancy {
	ecart := seg.Start - actual
	typ, sev := ClassifyArrival(ecart, th)
	return Discrepancy{
		Type:         typ,
		Severity:     sev,
		PlannedValue: FormatMinutes(seg.Start),
		ActualValue:  FormatMinutes(actual),
		DeltaMinutes: abs(ecart),
		EcartMinutes: ecart,
		SegmentIndex: seg.Index,
		Description:  arrivalLabel(typ, abs(ecart), seg),
	}
}

func departureDiscrepancy(seg PlannedSegment, actual int, th DepartureThresholds) Discrepancy {
	ecart := seg.End - actual
	typ, sev := ClassifyDeparture(ecart, th)
	return Discrepancy{
		Type:         typ,
		Severity:     sev,
		PlannedValue: FormatMinutes(seg.End),
		ActualValue:  FormatMinutes(actual),
		DeltaMinutes: abs(ecart),
		EcartMinutes: ecart,
		SegmentIndex: seg.Index,
		Description:  departureLabel(typ, abs(ecart), seg),
	}
}

// 描述文本面向法语用户界面
func arrivalLabel(typ AnomalyType, delta int, seg PlannedSegment) string {
	switch typ {
	case TypeHorsPlageIn:
		return fmt.Sprintf("Arrivée très anticipée de %d min (segment %d, prévu %s)", delta, seg.Index, FormatMinutes(seg.Start))
	case TypeArriveeAcceptable:
		return fmt.Sprintf("Arrivée conforme (segment %d)", seg.Index)
	case TypeRetardModere:
		return fmt.Sprintf("Retard modéré de %d min (segment %d, prévu %s)", delta, seg.Index, FormatMinutes(seg.Start))
	default:
		return fmt.Sprintf("Retard critique de %d min (segment %d, prévu %s)", delta, seg.Index, FormatMinutes(seg.Start))
	}
}

func departureLabel(typ AnomalyType, delta int, seg PlannedSegment) string {
	switch typ {
	case TypeDepartPrematureCritique:
		return fmt.Sprintf("Départ prématuré de %d min (segment %d, prévu %s)", delta, seg.Index, FormatMinutes(seg.End))
	case TypeDepartAnticipe:
		return fmt.Sprintf("Départ anticipé de %d min (segment %d, prévu %s)", delta, seg.Index, FormatMinutes(seg.End))
	case TypeDepartAcceptable:
		return fmt.Sprintf("Départ conforme (segment %d)", seg.Index)
	case TypeHeuresSupAutoValidees:
		return fmt.Sprintf("Heures supplémentaires auto-validées: %d min (segment %d)", delta, seg.Index)
	case TypeHeuresSupAValider:
		return fmt.Sprintf("Heures supplémentaires à valider: %d min (segment %d)", delta, seg.Index)
	default:
		return fmt.Sprintf("Départ hors plage de %d min après la fin prévue %s (segment %d)", delta, FormatMinutes(seg.End), seg.Index)
	}
}
