package models

import (
	"fmt"
	"strings"
)

type Segment string

const (
	SegmentRegular      Segment = "regular"
	SegmentPrescription Segment = "prescription"
	SegmentHighValue    Segment = "high-value"
	SegmentChurnRisk    Segment = "churn-risk"
)

// Segments lists every segment in report order.
var Segments = []Segment{SegmentRegular, SegmentPrescription, SegmentHighValue, SegmentChurnRisk}

func ParseSegment(value string) (Segment, error) {
	switch s := Segment(strings.ToLower(strings.TrimSpace(value))); s {
	case SegmentRegular, SegmentPrescription, SegmentHighValue, SegmentChurnRisk:
		return s, nil
	default:
		return "", fmt.Errorf("invalid segment: %q", value)
	}
}
